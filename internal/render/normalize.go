package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const pdfMIME = "application/pdf"

// normalize accepts the three response shapes the webhook can produce:
//   - raw PDF bytes
//   - JSON carrying base64 under pdf_base64, pdf, data or file.data
//   - JSON carrying a pdf_url or url to fetch
//
// JSON may be wrapped in an array; the first item is used.
func normalize(ctx context.Context, hc *http.Client, h http.Header, body []byte) (Document, error) {
	// the trimmed copy is only for sniffing; document bytes stay as sent
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Document{}, decodeErr("render endpoint returned an empty response", nil)
	}

	headerName := filenameFromDisposition(h.Get("Content-Disposition"))

	if mimetype.Detect(body).Is(pdfMIME) {
		return fromBytes(body, headerName), nil
	}

	if trimmed[0] != '{' && trimmed[0] != '[' {
		ct := h.Get("Content-Type")
		return Document{}, decodeErr(fmt.Sprintf("render endpoint returned an unrecognized %s body", orUnknown(ct)), nil)
	}

	item, err := firstItem(trimmed)
	if err != nil {
		return Document{}, err
	}

	name := headerName
	if fn, ok := item["filename"].(string); ok && strings.TrimSpace(fn) != "" {
		name = strings.TrimSpace(fn)
	}

	if b64 := base64Field(item); b64 != "" {
		data, err := decodeBase64(b64)
		if err != nil {
			return Document{}, decodeErr("render response carried malformed base64", err)
		}
		if len(data) == 0 {
			return Document{}, decodeErr("render response carried an empty document", nil)
		}
		return pdfDocument(data, name)
	}

	if u := urlField(item); u != "" {
		data, err := fetch(ctx, hc, u)
		if err != nil {
			return Document{}, err
		}
		return pdfDocument(data, name)
	}

	return Document{}, decodeErr("render response did not contain a document", nil)
}

// pdfDocument rejects decoded or fetched content that is not a PDF.
func pdfDocument(data []byte, filename string) (Document, error) {
	if !mimetype.Detect(data).Is(pdfMIME) {
		return Document{}, decodeErr("render response did not contain a PDF", nil)
	}
	return fromBytes(data, filename), nil
}

func fromBytes(data []byte, filename string) Document {
	return Document{
		Data:     data,
		Base64:   base64.StdEncoding.EncodeToString(data),
		Filename: filename,
		MIME:     mimetype.Detect(data).String(),
	}
}

func firstItem(body []byte) (map[string]any, error) {
	if body[0] == '[' {
		var items []map[string]any
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, decodeErr("render endpoint returned malformed JSON", err)
		}
		if len(items) == 0 {
			return nil, decodeErr("render endpoint returned an empty list", nil)
		}
		return items[0], nil
	}
	var item map[string]any
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, decodeErr("render endpoint returned malformed JSON", err)
	}
	return item, nil
}

func base64Field(item map[string]any) string {
	for _, k := range []string{"pdf_base64", "pdf", "data"} {
		if s, ok := item[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	if f, ok := item["file"].(map[string]any); ok {
		if s, ok := f["data"].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func urlField(item map[string]any) string {
	for _, k := range []string{"pdf_url", "url"} {
		if s, ok := item[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// decodeBase64 strips a data: URI prefix and whitespace before decoding.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	s = strings.Join(strings.Fields(s), "")
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}

func fetch(ctx context.Context, hc *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, decodeErr("render response carried an invalid document URL", err)
	}
	req.Header.Set("Accept", "application/pdf, */*")

	res, err := hc.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: "fetch rendered document", Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return nil, &Error{Kind: KindTransport, Status: res.StatusCode, Message: fmt.Sprintf("fetch rendered document: %s", res.Status)}
	}
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: "fetch rendered document", Err: err}
	}
	if len(data) == 0 {
		return nil, decodeErr("rendered document URL returned an empty file", nil)
	}
	return data, nil
}

func filenameFromDisposition(v string) string {
	if v == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(v)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(params["filename"])
}

func decodeErr(msg string, err error) *Error {
	return &Error{Kind: KindDecode, Message: msg, Err: err}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
