package reddit

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"
)

const (
	MsgErrorOccurred = "Error Occurred"

	msgSubmittedFormat = `Post submitted successfully <a href="%s"> check it out </a>`
)

var ErrUnexpectedResponse = errors.New("unexpected reddit response")

// SubmitParams builds the /api/submit form: the fixed protocol fields first,
// then every caller field, which replaces a fixed one of the same name.
func SubmitParams(form url.Values) url.Values {
	params := url.Values{}
	params.Set("api_type", "json")
	params.Set("kind", "link")
	params.Set("resubmit", "true")
	params.Set("then", "comments")

	for key, values := range form {
		if len(values) == 0 {
			continue
		}
		params.Set(key, values[0])
	}

	return params
}

type submitResponse struct {
	JSON *struct {
		Errors []json.RawMessage `json:"errors"`
		Data   *struct {
			URL *string `json:"url"`
		} `json:"data"`
	} `json:"json"`
}

// ParseSubmitResponse turns the /api/submit reply into the message shown to
// the user. An empty errors array counts as no errors.
func ParseSubmitResponse(body []byte) (string, error) {
	const op = "reddit.ParseSubmitResponse"

	var resp submitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if resp.JSON == nil {
		return "", fmt.Errorf("%s: %w", op, ErrUnexpectedResponse)
	}

	if len(resp.JSON.Errors) > 0 {
		return errorMessage(resp.JSON.Errors[0]), nil
	}

	if resp.JSON.Data != nil && resp.JSON.Data.URL != nil {
		return fmt.Sprintf(msgSubmittedFormat, html.EscapeString(*resp.JSON.Data.URL)), nil
	}

	return MsgErrorOccurred, nil
}

// errorMessage joins the escaped parts of one Reddit error with <br>, e.g.
// ["SUBREDDIT_NOEXIST", "that subreddit doesn't exist", "sr"].
func errorMessage(first json.RawMessage) string {
	var parts []json.RawMessage
	if err := json.Unmarshal(first, &parts); err != nil {
		parts = []json.RawMessage{first}
	}

	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.ReplaceAll(string(p), `"`, "")
		s = strings.ReplaceAll(s, "null", "")
		texts = append(texts, html.EscapeString(s))
	}

	return strings.Join(texts, "<br>")
}

// RejectedError carries the errors Reddit returned instead of a result.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return "reddit rejected the request: " + e.Message
}

type captchaResponse struct {
	JSON *struct {
		Errors []json.RawMessage `json:"errors"`
		Data   struct {
			Iden string `json:"iden"`
		} `json:"data"`
	} `json:"json"`
}

// ParseCaptchaIden reads json.data.iden. A reply with json.errors becomes a
// *RejectedError. Only bodies without the json envelope fall back to the
// second-to-last quoted token, where iden sits in the bare reply shape.
func ParseCaptchaIden(body []byte) (string, error) {
	const op = "reddit.ParseCaptchaIden"

	var resp captchaResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.JSON != nil {
		if len(resp.JSON.Errors) > 0 {
			return "", fmt.Errorf("%s: %w", op, &RejectedError{Message: errorMessage(resp.JSON.Errors[0])})
		}

		if resp.JSON.Data.Iden == "" {
			return "", fmt.Errorf("%s: %w", op, ErrUnexpectedResponse)
		}

		return resp.JSON.Data.Iden, nil
	}

	parts := strings.Split(string(body), `"`)
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}

	if len(parts) < 2 {
		return "", fmt.Errorf("%s: %w", op, ErrUnexpectedResponse)
	}

	return parts[len(parts)-2], nil
}
