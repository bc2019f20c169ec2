package fetcher

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

// decodeBody converts body to UTF-8 using the charset declared in
// contentType, falling back to BOM sniffing and then to UTF-8 with
// replacement characters for anything undecodable.
// It returns the decoded bytes and the charset name actually used.
func decodeBody(body []byte, contentType string) ([]byte, string) {
	if utf8.Valid(body) && !strings.Contains(strings.ToLower(contentType), "charset=") {
		return body, "utf-8"
	}

	reader, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" {
		return body, "utf-8"
	}

	decoded, err := io.ReadAll(reader)
	if err != nil || !utf8.Valid(decoded) {
		return toValidUTF8(body), "utf-8"
	}
	return decoded, name
}

// toValidUTF8 replaces invalid byte sequences with the Unicode replacement
// character rather than failing the fetch outright.
func toValidUTF8(body []byte) []byte {
	if utf8.Valid(body) {
		return body
	}
	var buf bytes.Buffer
	for len(body) > 0 {
		r, size := utf8.DecodeRune(body)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune(utf8.RuneError)
			body = body[1:]
			continue
		}
		buf.Write(body[:size])
		body = body[size:]
	}
	return buf.Bytes()
}
