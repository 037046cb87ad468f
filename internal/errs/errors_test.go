package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKinds(t *testing.T) {
	nf := NotFound("room %s not found", "r1")
	assert.True(t, errors.Is(nf, ErrNotFound))
	assert.True(t, errors.Is(nf, ErrValidation))
	assert.False(t, errors.Is(nf, ErrRuleViolation))
	assert.Equal(t, "room r1 not found", Message(nf))

	rule := fmt.Errorf("settle: %w", Rule("insufficient chips"))
	assert.True(t, errors.Is(rule, ErrRuleViolation))

	fb := Forbidden("only the host can settle")
	assert.True(t, errors.Is(fb, ErrForbidden))
	assert.True(t, errors.Is(fb, ErrRuleViolation))

	cause := errors.New("dial tcp: timeout")
	p := Persistence(cause, "commit room %s", "r1")
	assert.True(t, errors.Is(p, ErrPersistence))
	assert.True(t, errors.Is(p, cause))
	assert.Equal(t, "commit room r1", Message(p))
	assert.Contains(t, p.Error(), "timeout")
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("x")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(Validation("x")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(Rule("x")))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(Forbidden("x")))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(Persistence(nil, "x")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestResponse(t *testing.T) {
	status, body := Response(Rule("SB and BB must differ"))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "SB and BB must differ", body["error"])
}
