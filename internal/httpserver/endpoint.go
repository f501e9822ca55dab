package httpserver

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"lean-commerce/internal/domain"
)

// endpoint is one REST resource. Handle only runs for a method listed by
// Methods and after every declared arg has been validated.
type endpoint interface {
	Path() string
	Methods() []string
	Args() map[string]arg
	Handle(ctx context.Context, req *request) (*response, error)
}

type argKind int

const (
	argString argKind = iota
	argInt
	argObject
)

// arg declares the shape of one request parameter. Rules are validator tags
// applied to the converted value.
type arg struct {
	kind     argKind
	required bool
	rules    string
}

type response struct {
	status int
	body   interface{}
}

func jsonOK(body interface{}) *response {
	return &response{status: http.StatusOK, body: body}
}

func jsonCreated(body interface{}) *response {
	return &response{status: http.StatusCreated, body: body}
}

// request is the validated view of an incoming call.
type request struct {
	method   string
	values   map[string]interface{}
	bulk     []interface{}
	identity domain.Identity
}

func (r *request) text(key string) string {
	v, _ := r.values[key].(string)
	return v
}

func (r *request) number(key string) int64 {
	v, _ := r.values[key].(int64)
	return v
}

func (r *request) object(key string) map[string]interface{} {
	v, _ := r.values[key].(map[string]interface{})
	return v
}

func (s *server) register(rg *gin.RouterGroup, ep endpoint) {
	allowed := make(map[string]bool, len(ep.Methods()))
	for _, m := range ep.Methods() {
		allowed[m] = true
	}
	args := ep.Args()

	rg.Any(ep.Path(), func(c *gin.Context) {
		if !allowed[c.Request.Method] {
			s.renderError(c, domain.Errorf(domain.EMETHOD, "httpserver.dispatch",
				"No route was found matching the URL and request method."))
			return
		}
		raw, bulk, err := readParams(c)
		if err != nil {
			s.renderError(c, err)
			return
		}
		values, err := s.checkArgs(args, raw)
		if err != nil {
			s.renderError(c, err)
			return
		}

		req := &request{
			method: c.Request.Method,
			values: values,
			bulk:   bulk,
			identity: domain.Identity{
				Session: sessionFrom(c),
				TokenID: tokenFrom(c, raw),
				Email:   strings.TrimSpace(stringValue(raw["user_email"])),
			},
		}
		resp, err := ep.Handle(c.Request.Context(), req)
		if err != nil {
			s.renderError(c, err)
			return
		}
		c.JSON(resp.status, resp.body)
	})
}

// checkArgs converts each declared parameter to its kind and applies its
// rules. Undeclared parameters are dropped.
func (s *server) checkArgs(args map[string]arg, raw map[string]interface{}) (map[string]interface{}, error) {
	const op = "httpserver.args"
	values := make(map[string]interface{}, len(args))
	var missing, invalid []string

	for name, a := range args {
		v, present := raw[name]
		if !present || v == nil || v == "" {
			if a.required {
				missing = append(missing, name)
			}
			continue
		}
		converted, ok := convertArg(a.kind, v)
		if !ok {
			invalid = append(invalid, name)
			continue
		}
		if a.rules != "" && a.kind != argObject {
			if err := s.validate.Var(converted, a.rules); err != nil {
				invalid = append(invalid, name)
				continue
			}
		}
		values[name] = converted
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, domain.Errorf(domain.EREQUEST, op, "Missing parameter(s): %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return nil, domain.Errorf(domain.EREQUEST, op, "Invalid parameter(s): %s", strings.Join(invalid, ", "))
	}
	return values, nil
}

func convertArg(kind argKind, v interface{}) (interface{}, bool) {
	switch kind {
	case argObject:
		m, ok := v.(map[string]interface{})
		return m, ok
	case argInt:
		s, ok := scalar(v)
		if !ok {
			return nil, false
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, false
		}
		return n, true
	default:
		s, ok := scalar(v)
		if !ok {
			return nil, false
		}
		return strings.TrimSpace(s), true
	}
}
