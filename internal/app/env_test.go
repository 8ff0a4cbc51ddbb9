package app

import (
	"testing"
	"time"
)

func TestEnvHelpers_Defaults(t *testing.T) {
	if got := EnvString("COURIER_TEST_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("EnvString = %q", got)
	}
	if got := EnvBool("COURIER_TEST_UNSET", true); !got {
		t.Fatalf("EnvBool did not return default")
	}
	if got := EnvInt("COURIER_TEST_UNSET", 42); got != 42 {
		t.Fatalf("EnvInt = %d", got)
	}
	if got := EnvDuration("COURIER_TEST_UNSET", time.Minute); got != time.Minute {
		t.Fatalf("EnvDuration = %v", got)
	}
	if got := EnvStringList("COURIER_TEST_UNSET"); got != nil {
		t.Fatalf("EnvStringList = %v", got)
	}
}

func TestEnvStringList_SplitsAndTrims(t *testing.T) {
	t.Setenv("COURIER_TEST_LIST", " https://a.example.com , ,https://b.example.com ")

	got := EnvStringList("COURIER_TEST_LIST")
	if len(got) != 2 || got[0] != "https://a.example.com" || got[1] != "https://b.example.com" {
		t.Fatalf("EnvStringList = %v", got)
	}
}
