package recurly

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
)

type apiErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
		Params  []struct {
			Param   string `json:"param"`
			Message string `json:"message"`
		} `json:"params"`
	} `json:"error"`
}

// decodeError maps a non-2xx response onto the error taxonomy:
// credentials -> configuration, 404 -> not found, 400/422 -> validation
// (gateway message kept verbatim), everything else -> dependency.
func decodeError(operation string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))

	var body apiErrorBody
	_ = json.Unmarshal(raw, &body)
	message := strings.TrimSpace(body.Error.Message)
	cause := fmt.Errorf("%s: status %d: %s", operation, resp.StatusCode, strings.TrimSpace(string(raw)))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return pkgerrors.Wrap(pkgerrors.CodeConfiguration, cause, "The Recurly API credentials were rejected.")
	case http.StatusNotFound:
		if message == "" {
			message = "resource not found"
		}
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, cause, message)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if message == "" {
			message = "the billing provider rejected the request"
		}
		err := pkgerrors.Wrap(pkgerrors.CodeValidation, cause, message)
		if len(body.Error.Params) > 0 {
			details := map[string]string{}
			for _, p := range body.Error.Params {
				details[p.Param] = p.Message
			}
			err = err.WithDetails(details)
		}
		return err
	case http.StatusTooManyRequests:
		return pkgerrors.Wrap(pkgerrors.CodeRateLimit, cause, "billing provider rate limit exceeded")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, fmt.Sprintf("%s request failed", operation))
}

func outcomeFor(status int) string {
	switch {
	case status == http.StatusNotFound:
		return "not_found"
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return "rejected"
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return "unauthorized"
	}
	return "error"
}

// IsNotFound reports whether err is a gateway 404.
func IsNotFound(err error) bool {
	return pkgerrors.Is(err, pkgerrors.CodeNotFound)
}
