package dromos_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/RobertWHurst/dromos"
	"github.com/RobertWHurst/navaros"
)

func doRequest(t *testing.T, method, url, body string) (*http.Response, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}
	return res, string(resBody)
}

func TestServerRespondsWithJSON(t *testing.T) {
	router := dromos.NewRouter()
	router.Get("", func(ctx *dromos.Context) (dromos.Result, error) {
		return dromos.Value("Hello World!"), nil
	})
	router.Get("object", func(ctx *dromos.Context) (dromos.Result, error) {
		return dromos.Value(dromos.M{"a": 1}), nil
	})

	server := httptest.NewServer(dromos.NewServer(router))
	defer server.Close()

	tests := []struct {
		path string
		body string
	}{
		{"/", `"Hello World!"`},
		{"", `"Hello World!"`},
		{"/object", `{"a":1}`},
		{"/object/", `{"a":1}`},
	}
	for _, tt := range tests {
		res, body := doRequest(t, http.MethodGet, server.URL+tt.path, "")
		if res.StatusCode != http.StatusOK {
			t.Errorf("%q: expected 200, got %d", tt.path, res.StatusCode)
		}
		if ct := res.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("%q: expected application/json, got %q", tt.path, ct)
		}
		if body != tt.body {
			t.Errorf("%q: expected %s, got %s", tt.path, tt.body, body)
		}
	}
}

func TestServerErrorResponses(t *testing.T) {
	router := dromos.NewRouter()
	router.Get("fail", func(ctx *dromos.Context) (dromos.Result, error) {
		return dromos.Result{}, errors.New("something broke")
	})
	router.Get("forbidden", func(ctx *dromos.Context) (dromos.Result, error) {
		return dromos.Result{}, dromos.NewHTTPError(http.StatusForbidden, "")
	})
	router.Get("wrapped", func(ctx *dromos.Context) (dromos.Result, error) {
		return dromos.Result{}, errors.Join(errors.New("context"), dromos.NewHTTPError(http.StatusConflict, "taken"))
	})
	router.Post("validate", func(ctx *dromos.Context) (dromos.Result, error) {
		return dromos.Result{}, dromos.ValidationError{{Field: "name", Error: "required"}}
	})
	router.Get("panic", func(ctx *dromos.Context) (dromos.Result, error) {
		panic("handler exploded")
	})
	router.Get("session", func(ctx *dromos.Context) (dromos.Result, error) {
		return dromos.Session(&dromos.MessageHandlerFuncs{}), nil
	})

	server := httptest.NewServer(dromos.NewServer(router))
	defer server.Close()

	tests := []struct {
		method string
		path   string
		body   string
		status int
		expect string
	}{
		{http.MethodGet, "/missing", "", http.StatusNotFound, `{"error":"not found"}`},
		{http.MethodPost, "/fail", "", http.StatusNotFound, `{"error":"not found"}`},
		{http.MethodGet, "/fail", "", http.StatusInternalServerError, `{"error":"something broke"}`},
		{http.MethodGet, "/forbidden", "", http.StatusForbidden, `{"error":"Forbidden"}`},
		{http.MethodGet, "/wrapped", "", http.StatusConflict, `{"error":"taken"}`},
		{http.MethodPost, "/validate", `{}`, http.StatusBadRequest, `{"error":"Validation error","fields":[{"name":"required"}]}`},
		{http.MethodPost, "/validate", `{`, http.StatusBadRequest, `{"error":"request body is not valid JSON"}`},
		{http.MethodGet, "/panic", "", http.StatusInternalServerError, `{"error":"handler panicked: handler exploded"}`},
		{http.MethodGet, "/session", "", http.StatusInternalServerError, `{"error":"handler result does not match transport: session result for GET request"}`},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			res, body := doRequest(t, tt.method, server.URL+tt.path, tt.body)
			if res.StatusCode != tt.status {
				t.Errorf("expected %d, got %d", tt.status, res.StatusCode)
			}
			if ct := res.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected application/json, got %q", ct)
			}
			if body != tt.expect {
				t.Errorf("expected %s, got %s", tt.expect, body)
			}
		})
	}
}

func TestServerPanicDoesNotAffectLaterRequests(t *testing.T) {
	calls := 0
	router := dromos.NewRouter()
	router.Get("", func(ctx *dromos.Context) (dromos.Result, error) {
		calls++
		if calls == 1 {
			panic("first call fails")
		}
		return dromos.Value("ok"), nil
	})

	server := httptest.NewServer(dromos.NewServer(router))
	defer server.Close()

	res, _ := doRequest(t, http.MethodGet, server.URL, "")
	if res.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", res.StatusCode)
	}
	res, body := doRequest(t, http.MethodGet, server.URL, "")
	if res.StatusCode != http.StatusOK || body != `"ok"` {
		t.Errorf("expected 200 \"ok\", got %d %s", res.StatusCode, body)
	}
}

func TestServerPayloadFromBodyAndQuery(t *testing.T) {
	type pingPong struct {
		Ping string `json:"ping"`
		Pong string `json:"pong"`
	}

	router := dromos.NewRouter()
	router.Any("echo", func(ctx *dromos.Context) (dromos.Result, error) {
		var p pingPong
		if err := ctx.Unmarshal(&p); err != nil {
			return dromos.Result{}, err
		}
		p.Pong += "1"
		return dromos.Value(p), nil
	})

	server := httptest.NewServer(dromos.NewServer(router))
	defer server.Close()

	_, body := doRequest(t, http.MethodPut, server.URL+"/echo", `{"pong":"2"}`)
	var fromBody pingPong
	if err := json.Unmarshal([]byte(body), &fromBody); err != nil {
		t.Fatal(err)
	}
	if fromBody.Pong != "21" {
		t.Errorf("expected 21, got %q", fromBody.Pong)
	}

	_, body = doRequest(t, http.MethodGet, server.URL+"/echo?pong=3", "")
	var fromQuery pingPong
	if err := json.Unmarshal([]byte(body), &fromQuery); err != nil {
		t.Fatal(err)
	}
	if fromQuery.Pong != "31" {
		t.Errorf("expected 31, got %q", fromQuery.Pong)
	}
}

func TestServerBodyLimit(t *testing.T) {
	router := dromos.NewRouter()
	router.Post("", func(ctx *dromos.Context) (dromos.Result, error) {
		return dromos.Value("accepted"), nil
	})

	server := httptest.NewServer(dromos.NewServer(router, dromos.WithBodyLimit(16)))
	defer server.Close()

	res, _ := doRequest(t, http.MethodPost, server.URL, `{"a":"short"}`)
	if res.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", res.StatusCode)
	}
	res, _ = doRequest(t, http.MethodPost, server.URL, `{"a":"this body is too long"}`)
	if res.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", res.StatusCode)
	}
}

func TestServerContextExposesRequest(t *testing.T) {
	router := dromos.NewRouter()
	router.Any("info", func(ctx *dromos.Context) (dromos.Result, error) {
		return dromos.Value(dromos.M{
			"verb":    ctx.Verb(),
			"segment": ctx.Segment(),
			"path":    ctx.Path(),
			"header":  ctx.Header("X-Test"),
			"remote":  ctx.RemoteAddr() != "",
		}), nil
	})

	server := httptest.NewServer(dromos.NewServer(router))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodPatch, server.URL+"/info/a/b", nil)
	req.Header.Set("X-Test", "value")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()

	var body struct {
		Verb    string   `json:"verb"`
		Segment string   `json:"segment"`
		Path    []string `json:"path"`
		Header  string   `json:"header"`
		Remote  bool     `json:"remote"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Verb != "patch" || body.Segment != "info" || body.Header != "value" || !body.Remote {
		t.Errorf("unexpected context %+v", body)
	}
	if len(body.Path) != 2 || body.Path[0] != "a" || body.Path[1] != "b" {
		t.Errorf("expected remaining path [a b], got %v", body.Path)
	}
}

func TestNewServerPanicsWithoutRouter(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	dromos.NewServer(nil)
}

func TestServerMiddleware(t *testing.T) {
	router := dromos.NewRouter()
	router.Get("api", func(ctx *dromos.Context) (dromos.Result, error) {
		return dromos.Value("from dromos"), nil
	})
	router.Get("fail", func(ctx *dromos.Context) (dromos.Result, error) {
		return dromos.Result{}, dromos.NewHTTPError(http.StatusTeapot, "short and stout")
	})

	navarosRouter := navaros.NewRouter()
	navarosRouter.Use(dromos.NewServer(router).Middleware())
	navarosRouter.Get("/fallback", func(ctx *navaros.Context) {
		ctx.Status = http.StatusOK
		ctx.Body = "from navaros"
	})

	server := httptest.NewServer(navarosRouter)
	defer server.Close()

	res, body := doRequest(t, http.MethodGet, server.URL+"/api", "")
	if res.StatusCode != http.StatusOK || body != `"from dromos"` {
		t.Errorf("expected dromos response, got %d %s", res.StatusCode, body)
	}

	res, body = doRequest(t, http.MethodGet, server.URL+"/fail", "")
	if res.StatusCode != http.StatusTeapot || body != `{"error":"short and stout"}` {
		t.Errorf("expected dromos error response, got %d %s", res.StatusCode, body)
	}

	res, body = doRequest(t, http.MethodGet, server.URL+"/fallback", "")
	if res.StatusCode != http.StatusOK || !strings.Contains(body, "from navaros") {
		t.Errorf("expected request to fall through to navaros, got %d %s", res.StatusCode, body)
	}
}
