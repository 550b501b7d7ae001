package service

import "github.com/xlzd/gotp"

// StepUpService verifies the TOTP confirmation required before
// destructive admin operations (campaign sends, bulk deletes) when
// two-factor is enabled in settings.
type StepUpService struct {
	settingService SettingService
}

// Required reports whether step-up verification is enabled.
func (s *StepUpService) Required() bool {
	enabled, err := s.settingService.GetTwoFactorEnable()
	return err == nil && enabled
}

// Verify checks a TOTP code against the configured secret. When
// step-up is disabled every code passes.
func (s *StepUpService) Verify(code string) bool {
	if !s.Required() {
		return true
	}
	secret, err := s.settingService.GetTwoFactorToken()
	if err != nil || secret == "" {
		return false
	}
	return gotp.NewDefaultTOTP(secret).Now() == code
}

// GenerateSecret creates and stores a fresh TOTP secret, returning it
// once for enrollment.
func (s *StepUpService) GenerateSecret() (string, error) {
	secret := gotp.RandomSecret(32)
	if err := s.settingService.SetTwoFactorToken(secret); err != nil {
		return "", err
	}
	if err := s.settingService.SetTwoFactorEnable(true); err != nil {
		return "", err
	}
	return secret, nil
}
