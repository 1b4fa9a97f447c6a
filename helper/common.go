package helper

import (
	"regexp"
	"strconv"
	"strings"
)

// XMLA encodes characters that are not legal in XML element names as _xHHHH_.
var EncodedNameRegex = regexp.MustCompile(`_x([0-9A-Fa-f]{4})_`)

func DecodeXMLName(s string) string {
	if !strings.Contains(s, "_x") {
		return s
	}
	return EncodedNameRegex.ReplaceAllStringFunc(s, func(match string) string {
		code, err := strconv.ParseUint(match[2:6], 16, 16)
		if err != nil {
			return match
		}
		return string(rune(code))
	})
}
