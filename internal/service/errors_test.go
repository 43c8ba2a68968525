package service_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mohammadhprp/batchgate/internal/service"
)

func TestErrorKindSurvivesWrapping(t *testing.T) {
	base := service.NewError(service.KindNotList, errors.New("payload is object"))
	wrapped := fmt.Errorf("handle request: %w", base)

	if got := service.KindOf(wrapped); got != service.KindNotList {
		t.Errorf("expected not_list, got %s", got)
	}
	if got := service.PublicMessage(wrapped); got != service.MsgExpectedList {
		t.Errorf("unexpected public message %q", got)
	}
}

func TestPlainErrorIsInternal(t *testing.T) {
	err := errors.New("nil map write in handler")

	if got := service.KindOf(err); got != service.KindInternal {
		t.Errorf("expected internal, got %s", got)
	}
	if got := service.PublicMessage(err); got != service.MsgInternal {
		t.Errorf("internal detail leaked: %q", got)
	}
}

func TestErrorString(t *testing.T) {
	err := service.NewError(service.KindMalformedInput, errors.New("invalid character 'h'"))

	want := service.MsgExpectedJSON + ": invalid character 'h'"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}
