package utils

import (
	"strings"
	"testing"
)

func TestEnvInt(t *testing.T) {
	t.Setenv("TEST_ENV_INT", "42")
	if got := EnvInt("TEST_ENV_INT", 7); got != 42 {
		t.Errorf("Expected 42, got %d", got)
	}
	if got := EnvInt("TEST_ENV_INT_UNSET", 7); got != 7 {
		t.Errorf("Expected default 7, got %d", got)
	}

	t.Setenv("TEST_ENV_INT", "garbage")
	if got := EnvInt("TEST_ENV_INT", 7); got != 7 {
		t.Errorf("Expected default on garbage, got %d", got)
	}
}

func TestEnvFloat(t *testing.T) {
	t.Setenv("TEST_ENV_FLOAT", "0.3")
	if got := EnvFloat("TEST_ENV_FLOAT", 0.5); got != 0.3 {
		t.Errorf("Expected 0.3, got %f", got)
	}
	if got := EnvFloat("TEST_ENV_FLOAT_UNSET", 0.5); got != 0.5 {
		t.Errorf("Expected default 0.5, got %f", got)
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("TEST_ENV_BOOL", "true")
	if !EnvBool("TEST_ENV_BOOL") {
		t.Error("Expected true")
	}

	for _, v := range []string{"false", "1", "yes", ""} {
		t.Setenv("TEST_ENV_BOOL", v)
		if EnvBool("TEST_ENV_BOOL") {
			t.Errorf("Expected false for %q", v)
		}
	}
}

func TestPlainText(t *testing.T) {
	// YouTube textDisplay 是 HTML，入库前要拍平成纯文本
	got := PlainText(`Great <b>video</b>! &amp; thanks<br>a lot`)
	if got == "" {
		t.Fatal("Expected non-empty output")
	}
	for _, banned := range []string{"<b>", "<br>", "&amp;"} {
		if strings.Contains(got, banned) {
			t.Errorf("Output still contains %q: %q", banned, got)
		}
	}
}
