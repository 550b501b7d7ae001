package service

import (
	"testing"

	"github.com/xlzd/gotp"

	"github.com/satyogainstitute/portal/database"
)

func TestStepUpDisabledPassesEverything(t *testing.T) {
	if err := database.InitTestDB(); err != nil {
		t.Fatal(err)
	}
	s := StepUpService{}

	if s.Required() {
		t.Error("step-up should default to disabled")
	}
	if !s.Verify("") || !s.Verify("000000") {
		t.Error("disabled step-up should pass any code")
	}
}

func TestStepUpVerify(t *testing.T) {
	if err := database.InitTestDB(); err != nil {
		t.Fatal(err)
	}
	s := StepUpService{}

	secret, err := s.GenerateSecret()
	if err != nil {
		t.Fatal(err)
	}
	if !s.Required() {
		t.Fatal("generate should enable step-up")
	}

	code := gotp.NewDefaultTOTP(secret).Now()
	if !s.Verify(code) {
		t.Error("current TOTP code rejected")
	}
	if s.Verify("000000") && code != "000000" {
		t.Error("wrong code accepted")
	}
	if s.Verify("") {
		t.Error("empty code accepted with step-up enabled")
	}
}
