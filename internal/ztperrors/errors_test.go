package ztperrors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindTransport, "transport"},
		{KindData, "data"},
		{KindReconciliation, "reconciliation"},
		{KindExternalTool, "external-tool"},
		{KindUnknown, "unknown"},
		{Kind(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.expected {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.expected)
		}
	}
}

func TestError(t *testing.T) {
	t.Run("message includes kind, op and cause", func(t *testing.T) {
		err := Data("parse watch record", errors.New("unexpected end of JSON input"))
		msg := err.Error()

		for _, want := range []string{"data", "parse watch record", "unexpected end of JSON input"} {
			if !strings.Contains(msg, want) {
				t.Errorf("expected %q in %q", want, msg)
			}
		}
	})

	t.Run("unwrap exposes cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Transport("watch siteconfigs", cause)

		if !errors.Is(err, cause) {
			t.Error("expected errors.Is to find the cause")
		}
	})

	t.Run("Is matches by kind through wrapping", func(t *testing.T) {
		err := fmt.Errorf("batch: %w", ExternalTool("render", errors.New("plugin not found")))

		if !errors.Is(err, &Error{Kind: KindExternalTool}) {
			t.Error("expected errors.Is to match external tool kind")
		}
		if errors.Is(err, &Error{Kind: KindData}) {
			t.Error("expected errors.Is not to match data kind")
		}
	})
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("x"), KindUnknown},
		{"tagged", Reconciliation("list policies", errors.New("x")), KindReconciliation},
		{"wrapped", fmt.Errorf("outer: %w", Transport("apply", errors.New("x"))), KindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}
