// Package extract converts uploaded document files into plain text for
// chunking and indexing.
//
// Plain text and markdown pass through unchanged. JSON documents are
// flattened into readable "key: value" lines so structured data (drug
// tables, symptom lists) embeds as well as prose. Binary formats that
// need vision models (PDF, images) are handled upstream and rejected here.
package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	// ErrUnsupportedFormat indicates the file extension has no extractor.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrInvalidEncoding indicates a text file that is not valid UTF-8.
	ErrInvalidEncoding = errors.New("file is not valid UTF-8")
)

// Extract converts a document into plain text based on its file extension.
// Supported: .txt, .md (UTF-8 passthrough), .json (flattened to key: value
// lines). Anything else returns ErrUnsupportedFormat.
func Extract(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".txt", ".md":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: %s", ErrInvalidEncoding, filename)
		}
		return string(data), nil
	case ".json":
		return jsonToText(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// jsonToText flattens a JSON document into indented key: value lines.
// Object keys keep their document order, nested containers indent by two
// spaces, array elements render as "- value" for scalars and "Item N:"
// blocks for objects and arrays.
func jsonToText(data []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var b strings.Builder

	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("parsing JSON document: %w", err)
	}

	if delim, ok := tok.(json.Delim); ok {
		if err := writeContainer(dec, &b, "", delim); err != nil {
			return "", fmt.Errorf("parsing JSON document: %w", err)
		}
	} else {
		b.WriteString(scalarString(tok))
		b.WriteByte('\n')
	}

	// A JSON document is a single value; anything after it is malformed.
	if _, err := dec.Token(); err != io.EOF {
		return "", fmt.Errorf("parsing JSON document: unexpected trailing data")
	}

	return strings.TrimSuffix(b.String(), "\n"), nil
}

func writeContainer(dec *json.Decoder, b *strings.Builder, prefix string, open json.Delim) error {
	switch open {
	case '{':
		return writeObject(dec, b, prefix)
	case '[':
		return writeArray(dec, b, prefix)
	default:
		return fmt.Errorf("unexpected delimiter %q", open)
	}
}

func writeObject(dec *json.Decoder, b *strings.Builder, prefix string) error {
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", keyTok)
		}

		valTok, err := dec.Token()
		if err != nil {
			return err
		}

		if delim, ok := valTok.(json.Delim); ok {
			fmt.Fprintf(b, "%s%s:\n", prefix, key)
			if err := writeContainer(dec, b, prefix+"  ", delim); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(b, "%s%s: %s\n", prefix, key, scalarString(valTok))
		}
	}

	// Consume the closing brace
	_, err := dec.Token()
	return err
}

func writeArray(dec *json.Decoder, b *strings.Builder, prefix string) error {
	index := 0
	for dec.More() {
		index++

		valTok, err := dec.Token()
		if err != nil {
			return err
		}

		if delim, ok := valTok.(json.Delim); ok {
			fmt.Fprintf(b, "%sItem %d:\n", prefix, index)
			if err := writeContainer(dec, b, prefix+"  ", delim); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(b, "%s- %s\n", prefix, scalarString(valTok))
		}
	}

	// Consume the closing bracket
	_, err := dec.Token()
	return err
}

// scalarString renders a JSON scalar token. Numbers keep their document
// literal form (json.Number), so "2.5" and "1e3" survive unchanged.
func scalarString(tok json.Token) string {
	switch v := tok.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", v)
	}
}
