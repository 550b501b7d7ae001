package service

import (
	"testing"
	"time"

	"github.com/satyogainstitute/portal/database"
	"github.com/satyogainstitute/portal/web/entity"
)

func TestSettingDefaultsAndOverrides(t *testing.T) {
	if err := database.InitTestDB(); err != nil {
		t.Fatal(err)
	}
	s := SettingService{}

	maxAge, err := s.GetSessionMaxAge()
	if err != nil {
		t.Fatal(err)
	}
	if maxAge != 60 {
		t.Errorf("default sessionMaxAge = %d, want 60", maxAge)
	}

	ttl, err := s.GetContentCacheTTL()
	if err != nil {
		t.Fatal(err)
	}
	if ttl != 5*time.Minute {
		t.Errorf("default contentCacheTTL = %v, want 5m", ttl)
	}

	all := &entity.AllSetting{
		SessionMaxAge:   120,
		PageSize:        10,
		ContentCacheTTL: 600,
		TgBotEnable:     true,
		TgBotChatId:     "123456",
	}
	if err := s.UpdateAllSetting(all); err != nil {
		t.Fatal(err)
	}

	maxAge, _ = s.GetSessionMaxAge()
	if maxAge != 120 {
		t.Errorf("sessionMaxAge = %d after update, want 120", maxAge)
	}
	pageSize, _ := s.GetPageSize()
	if pageSize != 10 {
		t.Errorf("pageSize = %d after update, want 10", pageSize)
	}
	enabled, _ := s.GetTgBotEnabled()
	if !enabled {
		t.Error("tgBotEnable should be true after update")
	}
	chatId, _ := s.GetTgBotChatId()
	if chatId != "123456" {
		t.Errorf("tgBotChatId = %q after update, want 123456", chatId)
	}

	// Zero and empty fields keep their stored values.
	if err := s.UpdateAllSetting(&entity.AllSetting{TgBotEnable: true}); err != nil {
		t.Fatal(err)
	}
	maxAge, _ = s.GetSessionMaxAge()
	if maxAge != 120 {
		t.Errorf("sessionMaxAge = %d after empty update, want 120", maxAge)
	}
	chatId, _ = s.GetTgBotChatId()
	if chatId != "123456" {
		t.Errorf("tgBotChatId = %q after empty update, want 123456", chatId)
	}
}

func TestUpdateAllSettingRejectsBadLocation(t *testing.T) {
	if err := database.InitTestDB(); err != nil {
		t.Fatal(err)
	}
	s := SettingService{}

	err := s.UpdateAllSetting(&entity.AllSetting{TimeLocation: "Not/AZone"})
	if err == nil {
		t.Fatal("unknown time location should be rejected")
	}
}

func TestSettingUnknownKey(t *testing.T) {
	if err := database.InitTestDB(); err != nil {
		t.Fatal(err)
	}
	s := SettingService{}
	if _, err := s.getString("noSuchKey"); err == nil {
		t.Error("unknown setting key should error")
	}
}

func TestRotateAPIKey(t *testing.T) {
	if err := database.InitTestDB(); err != nil {
		t.Fatal(err)
	}
	s := SettingService{}

	// No key configured yet: nothing verifies.
	if s.CheckAPIKey("anything") {
		t.Error("empty key state should verify nothing")
	}

	key, err := s.RotateAPIKey()
	if err != nil {
		t.Fatal(err)
	}
	if len(key) != 40 {
		t.Errorf("key length = %d, want 40", len(key))
	}
	if !s.CheckAPIKey(key) {
		t.Error("freshly rotated key should verify")
	}
	if s.CheckAPIKey("wrong-key") {
		t.Error("wrong key must not verify")
	}

	hash, err := s.GetAPIKeyHash()
	if err != nil {
		t.Fatal(err)
	}
	if hash == key {
		t.Error("plaintext key must never be stored")
	}

	// Rotation invalidates the previous key.
	key2, err := s.RotateAPIKey()
	if err != nil {
		t.Fatal(err)
	}
	if s.CheckAPIKey(key) {
		t.Error("old key should stop verifying after rotation")
	}
	if !s.CheckAPIKey(key2) {
		t.Error("new key should verify after rotation")
	}
}

func TestGetTimeLocationFallsBack(t *testing.T) {
	if err := database.InitTestDB(); err != nil {
		t.Fatal(err)
	}
	s := SettingService{}

	loc, err := s.GetTimeLocation()
	if err != nil {
		t.Fatal(err)
	}
	if loc.String() != "America/Costa_Rica" {
		t.Errorf("default location = %s", loc)
	}

	if err := s.setString("timeLocation", "Not/AZone"); err != nil {
		t.Fatal(err)
	}
	loc, _ = s.GetTimeLocation()
	if loc == nil || loc.String() != "America/Costa_Rica" {
		t.Errorf("invalid location should fall back to default, got %v", loc)
	}
}
