package main

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	sboxSize = 256
	gridSize = 16
)

// SBox is a 256-entry substitution table. Entries are expected in [0,255]
// but nothing here assumes they are distinct or even in range.
type SBox []int

var hexToken = regexp.MustCompile(`[0-9a-fA-F]+`)

// CountError reports that parsed input did not hold exactly 256 values.
type CountError struct {
	Got int
}

func (e *CountError) Error() string {
	return fmt.Sprintf("expected %d values, got %d", sboxSize, e.Got)
}

// ParseSBox extracts hexadecimal tokens from free-form text, keeps the ones
// that fit in a byte and requires exactly 256 of them.
func ParseSBox(content string) (SBox, error) {
	tokens := hexToken.FindAllString(content, -1)
	values := make(SBox, 0, len(tokens))
	for _, tok := range tokens {
		v, err := strconv.ParseUint(tok, 16, 64)
		if err != nil {
			// overflow: certainly not a byte
			continue
		}
		if v > 255 {
			continue
		}
		values = append(values, int(v))
	}
	if len(values) != sboxSize {
		return nil, &CountError{Got: len(values)}
	}
	return values, nil
}

func (s SBox) Clone() SBox {
	if s == nil {
		return nil
	}
	out := make(SBox, len(s))
	copy(out, s)
	return out
}

// CSV renders the table as 16 rows of comma-separated hex bytes.
func (s SBox) CSV() string {
	var sb strings.Builder
	for row := 0; row*gridSize < len(s); row++ {
		end := min(len(s), (row+1)*gridSize)
		for i, v := range s[row*gridSize : end] {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(hexByte(v))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func hexByte(v int) string {
	if v < 0 || v > 255 {
		return "--"
	}
	return fmt.Sprintf("%02X", v)
}
