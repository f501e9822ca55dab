package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"lean-commerce/internal/domain"
)

const (
	maxFormMemory = 8 << 20
	maxJSONBody   = 1 << 20
)

// readParams merges the query string, form values and a JSON object body,
// later sources winning. A JSON array body is returned as the bulk list.
func readParams(c *gin.Context) (map[string]interface{}, []interface{}, error) {
	const op = "httpserver.params"
	params := make(map[string]interface{})
	mergeValues(params, c.Request.URL.Query())

	switch c.ContentType() {
	case binding.MIMEPOSTForm:
		if err := c.Request.ParseForm(); err != nil {
			return nil, nil, domain.Invalid(op, "Invalid form body.")
		}
		mergeValues(params, c.Request.PostForm)
		return params, nil, nil
	case binding.MIMEMultipartPOSTForm:
		if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil {
			return nil, nil, domain.Invalid(op, "Invalid form body.")
		}
		mergeValues(params, c.Request.PostForm)
		return params, nil, nil
	case binding.MIMEJSON:
	default:
		return params, nil, nil
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxJSONBody)
	data, err := c.GetRawData()
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return nil, nil, domain.Invalid(op, "Request body too large.")
	}
	if err != nil {
		return nil, nil, domain.Invalid(op, "Could not read request body.")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return params, nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var body interface{}
	if err := dec.Decode(&body); err != nil {
		return nil, nil, domain.Invalid(op, "Invalid JSON body.")
	}
	switch v := body.(type) {
	case map[string]interface{}:
		for k, val := range v {
			params[k] = val
		}
		return params, nil, nil
	case []interface{}:
		return params, v, nil
	default:
		return nil, nil, domain.Invalid(op, "Invalid JSON body.")
	}
}

// mergeValues copies the last value of each key. Keys shaped like
// billing[city] are collected into a nested object.
func mergeValues(dst map[string]interface{}, values url.Values) {
	for key, vs := range values {
		if len(vs) == 0 {
			continue
		}
		val := vs[len(vs)-1]
		open := strings.IndexByte(key, '[')
		if open <= 0 || !strings.HasSuffix(key, "]") {
			dst[key] = val
			continue
		}
		parent, child := key[:open], key[open+1:len(key)-1]
		obj, ok := dst[parent].(map[string]interface{})
		if !ok {
			obj = make(map[string]interface{})
			dst[parent] = obj
		}
		obj[child] = val
	}
}

func scalar(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func stringValue(v interface{}) string {
	s, _ := scalar(v)
	return s
}

// tokenFrom prefers the token_id parameter over a bearer Authorization header.
func tokenFrom(c *gin.Context, raw map[string]interface{}) string {
	if t := strings.TrimSpace(stringValue(raw["token_id"])); t != "" {
		return t
	}
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func toAddress(obj map[string]interface{}) domain.Address {
	if obj == nil {
		return nil
	}
	addr := make(domain.Address, len(obj))
	for k, v := range obj {
		if s, ok := scalar(v); ok {
			addr[k] = s
		}
	}
	return addr
}

func toStringMap(obj map[string]interface{}) map[string]string {
	if len(obj) == 0 {
		return nil
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		if s, ok := scalar(v); ok {
			out[k] = s
		}
	}
	return out
}
