package sourcemap

import "fmt"

// base64 VLQ decoding per the source-map-v3 spec: each digit is 6 bits,
// the low bit of the first digit is the sign, the high bit of every digit
// signals continuation.
const vlqBase = 32
const vlqBaseMask = vlqBase - 1
const vlqContinuationBit = vlqBase

var base64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

var base64Decode = func() map[byte]int {
	m := make(map[byte]int, len(base64Chars))
	for i := 0; i < len(base64Chars); i++ {
		m[base64Chars[i]] = i
	}
	return m
}()

// decodeVLQSegment decodes one comma-separated "mappings" segment into its
// component fields. A "mappings" entry has 1, 4, or 5 VLQ fields; callers
// track the running totals across segments as the spec requires.
func decodeVLQSegment(segment string) ([]int, error) {
	var values []int
	i := 0
	for i < len(segment) {
		value, consumed, err := decodeVLQ(segment[i:])
		if err != nil {
			return nil, err
		}
		values = append(values, value)
		i += consumed
	}
	return values, nil
}

func decodeVLQ(s string) (value int, consumed int, err error) {
	result := 0
	shift := 0
	for i := 0; i < len(s); i++ {
		digit, ok := base64Decode[s[i]]
		if !ok {
			return 0, 0, fmt.Errorf("sourcemap: invalid base64 VLQ digit %q", s[i])
		}

		cont := digit&vlqContinuationBit != 0
		digit &= vlqBaseMask
		result += digit << shift
		shift += 5
		consumed++

		if !cont {
			negative := result&1 == 1
			result >>= 1
			if negative {
				result = -result
			}
			return result, consumed, nil
		}
	}
	return 0, 0, fmt.Errorf("sourcemap: truncated VLQ sequence")
}
