package emails

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailforge/internal/domain/emailhtml"
	"mailforge/internal/infra/mailer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const structureJSON = `{
  "subject": "Spring Sale",
  "blocks": [
    {"id": "b2", "blockType": "button", "orderId": 2, "styles": {"borderRadius": "large"},
     "content": {"text": "Shop now", "url": "https://shop.example.com", "buttonStyle": "filled", "backgroundColor": "#0f766e"}},
    {"id": "b1", "blockType": "text", "orderId": 1, "styles": {},
     "content": {"text": "Everything is 20% off <this week>", "align": "center"}},
    {"id": "b0", "blockType": "header", "orderId": 0, "styles": {"fontSize": "large"},
     "content": {"companyName": "Acme"}}
  ]
}`

type fakeSender struct {
	sent []mailer.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.POST("/emails/convert", h.Convert)
	r.POST("/emails/parse", h.Parse)
	r.POST("/emails/classify", h.Classify)
	r.POST("/emails/send", h.Send)
	r.POST("/emails/export", h.Export)
	return r
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestConvert(t *testing.T) {
	t.Parallel()

	r := newRouter(NewHandler(&fakeSender{}))
	w := post(r, "/emails/convert", structureJSON)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		HTML string `json:"html"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.HTML, "<!DOCTYPE html>"))
	assert.Contains(t, resp.HTML, "20% off &lt;this week&gt;")

	header := strings.Index(resp.HTML, `data-block-id="b0"`)
	text := strings.Index(resp.HTML, `data-block-id="b1"`)
	button := strings.Index(resp.HTML, `data-block-id="b2"`)
	assert.True(t, header < text && text < button, "fragments follow orderId")
}

func TestConvert_Invalid(t *testing.T) {
	t.Parallel()

	r := newRouter(NewHandler(&fakeSender{}))

	w := post(r, "/emails/convert", `{"blocks":[{"id":"x","blockType":"button","orderId":0,"content":{"text":"Go","url":"javascript:alert(1)"}}]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Fields, "blocks[0].content.url")

	w = post(r, "/emails/convert", `{"blocks":[{"id":"x","orderId":0,"content":{}}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(r, "/emails/convert", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParse_RoundTrip(t *testing.T) {
	t.Parallel()

	r := newRouter(NewHandler(&fakeSender{}))
	w := post(r, "/emails/convert", structureJSON)
	require.Equal(t, http.StatusOK, w.Code)
	var converted struct {
		HTML string `json:"html"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &converted))

	body, err := json.Marshal(gin.H{"html": converted.HTML})
	require.NoError(t, err)
	w = post(r, "/emails/parse", string(body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var parsed struct {
		Blocks []struct {
			ID        string `json:"id"`
			BlockType string `json:"blockType"`
			OrderID   int    `json:"orderId"`
		} `json:"blocks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	require.Len(t, parsed.Blocks, 3)
	assert.Equal(t, "header", parsed.Blocks[0].BlockType)
	assert.Equal(t, "b2", parsed.Blocks[2].ID)

	assert.Equal(t, http.StatusBadRequest, post(r, "/emails/parse", `{}`).Code)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	r := newRouter(NewHandler(&fakeSender{}))
	tests := []struct {
		body string
		want string
	}{
		{body: `{"prompt":"change the button color to red","hasExistingEmail":true}`, want: "update"},
		{body: `{"prompt":"change the button color to red","hasExistingEmail":false}`, want: "create"},
		{body: `{"prompt":"create a welcome email"}`, want: "create"},
	}
	for _, tt := range tests {
		w := post(r, "/emails/classify", tt.body)
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Intent     string   `json:"intent"`
			Confidence float64  `json:"confidence"`
			Reasoning  []string `json:"reasoning"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, tt.want, resp.Intent, tt.body)
		assert.Greater(t, resp.Confidence, 0.5)
	}

	assert.Equal(t, http.StatusBadRequest, post(r, "/emails/classify", `{"prompt":""}`).Code)
	long, _ := json.Marshal(gin.H{"prompt": strings.Repeat("a", maxPromptLength+1)})
	assert.Equal(t, http.StatusBadRequest, post(r, "/emails/classify", string(long)).Code)
}

func TestSend(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	r := newRouter(NewHandler(sender))

	body := `{"to":"qa@example.com","subject":"Preview","structure":` + structureJSON + `}`
	w := post(r, "/emails/send", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "qa@example.com", sender.sent[0].To)
	assert.Equal(t, 3, emailhtml.Fragments(sender.sent[0].HTML))

	w = post(r, "/emails/send", `{"to":"qa@example.com","subject":"Raw","htmlContent":"<p onclick=\"x()\">Hi</p><script>alert(1)</script>"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[1].HTML, "<p>Hi</p>")
	assert.NotContains(t, sender.sent[1].HTML, "script")
	assert.NotContains(t, sender.sent[1].HTML, "onclick")
}

func TestSend_Rejects(t *testing.T) {
	t.Parallel()

	r := newRouter(NewHandler(&fakeSender{}))
	tests := []struct {
		name string
		body string
	}{
		{name: "bad recipient", body: `{"to":"qa@","subject":"x","htmlContent":"<p>x</p>"}`},
		{name: "no subject", body: `{"to":"qa@example.com","htmlContent":"<p>x</p>"}`},
		{name: "no content", body: `{"to":"qa@example.com","subject":"x"}`},
		{name: "invalid structure", body: `{"to":"qa@example.com","subject":"x","structure":{"blocks":[{"id":"a","blockType":"text","orderId":0,"content":{}}]}}`},
	}
	for _, tt := range tests {
		assert.Equal(t, http.StatusBadRequest, post(r, "/emails/send", tt.body).Code, tt.name)
	}

	failing := newRouter(NewHandler(&fakeSender{err: errors.New("smtp down")}))
	w := post(failing, "/emails/send", `{"to":"qa@example.com","subject":"x","htmlContent":"<p>x</p>"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestExport(t *testing.T) {
	t.Parallel()

	r := newRouter(NewHandler(&fakeSender{}))

	w := post(r, "/emails/export", structureJSON)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		HTML      string `json:"html"`
		Blocks    int    `json:"blocks"`
		Fragments int    `json:"fragments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Blocks)
	assert.Equal(t, 3, resp.Fragments)

	w = post(r, "/emails/export?download=1", structureJSON)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="spring-sale.html"`, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Equal(t, resp.HTML, w.Body.String())
}

func TestExportFilename(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "email.html", exportFilename(""))
	assert.Equal(t, "hello-world.html", exportFilename("  Hello,  World! "))
	assert.Equal(t, "q3-update.html", exportFilename("Q3 -- update"))
}
