package forms

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
)

func postRequest(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/schedule", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestDecodePost(t *testing.T) {
	tests := []struct {
		name            string
		form            url.Values
		wantSendReplies bool
		wantValid       bool
	}{
		{
			name:      "complete without sendreplies",
			form:      url.Values{"title": {"t"}, "sr": {"test"}, "url": {"http://x"}, "date": {"2999-01-01 00:00"}},
			wantValid: true,
		},
		{
			name:            "empty sendreplies still counts",
			form:            url.Values{"title": {"t"}, "sr": {"test"}, "url": {"http://x"}, "date": {"2999-01-01 00:00"}, "sendreplies": {""}},
			wantSendReplies: true,
			wantValid:       true,
		},
		{
			name: "missing date",
			form: url.Values{"title": {"t"}, "sr": {"test"}, "url": {"http://x"}},
		},
		{
			name: "bad url",
			form: url.Values{"title": {"t"}, "sr": {"test"}, "url": {"not a url"}, "date": {"2999-01-01 00:00"}},
		},
		{
			name: "missing title",
			form: url.Values{"sr": {"test"}, "url": {"http://x"}, "date": {"2999-01-01 00:00"}},
		},
	}

	validate := validator.New()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DecodePost(postRequest(tt.form))
			if err != nil {
				t.Fatalf("DecodePost() error = %v", err)
			}
			if p.SendReplies != tt.wantSendReplies {
				t.Errorf("SendReplies = %v, want %v", p.SendReplies, tt.wantSendReplies)
			}
			if err := validate.Struct(p); (err == nil) != tt.wantValid {
				t.Errorf("validate error = %v, want valid %v", err, tt.wantValid)
			}

			in := p.Input()
			if in.Title != p.Title || in.Subreddit != p.Subreddit || in.Date != p.Date {
				t.Errorf("Input() = %+v", in)
			}
		})
	}
}

func TestDecodeLinkIgnoresQuery(t *testing.T) {
	req := postRequest(url.Values{"title": {"form"}, "sr": {"a"}, "url": {"http://x"}})
	req.URL.RawQuery = "title=query"

	l, err := DecodeLink(req)
	if err != nil {
		t.Fatalf("DecodeLink() error = %v", err)
	}
	if l.Title != "form" {
		t.Errorf("Title = %q, want form value", l.Title)
	}
}
