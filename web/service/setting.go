// Package service implements the portal's business logic: external data
// fetchers, settings, payments, audit, notifications and status.
package service

import (
	"strconv"
	"time"

	"github.com/satyogainstitute/portal/database"
	"github.com/satyogainstitute/portal/database/model"
	"github.com/satyogainstitute/portal/logger"
	"github.com/satyogainstitute/portal/util/common"
	"github.com/satyogainstitute/portal/util/crypto"
	"github.com/satyogainstitute/portal/util/random"
	"github.com/satyogainstitute/portal/web/entity"
)

var defaultValueMap = map[string]string{
	"sessionMaxAge":    "60",
	"pageSize":         "20",
	"contentCacheTTL":  "300",
	"auditRetainDays":  "90",
	"tgBotEnable":      "false",
	"tgBotToken":       "",
	"tgBotChatId":      "",
	"tgBotLoginNotify": "true",
	"twoFactorEnable":  "false",
	"twoFactorToken":   "",
	"apiKeyHash":       "",
	"timeLocation":     "America/Costa_Rica",
}

// SettingService reads and writes the key/value tunables table.
type SettingService struct{}

func (s *SettingService) getSetting(key string) (*model.Setting, error) {
	db := database.GetDB()
	setting := &model.Setting{}
	err := db.Model(model.Setting{}).Where("key = ?", key).First(setting).Error
	if err != nil {
		return nil, err
	}
	return setting, nil
}

func (s *SettingService) saveSetting(key string, value string) error {
	setting, err := s.getSetting(key)
	db := database.GetDB()
	if database.IsNotFound(err) {
		return db.Create(&model.Setting{Key: key, Value: value}).Error
	} else if err != nil {
		return err
	}
	setting.Value = value
	return db.Save(setting).Error
}

func (s *SettingService) getString(key string) (string, error) {
	setting, err := s.getSetting(key)
	if database.IsNotFound(err) {
		value, ok := defaultValueMap[key]
		if !ok {
			return "", common.NewErrorf("unknown setting key: %v", key)
		}
		return value, nil
	} else if err != nil {
		return "", err
	}
	return setting.Value, nil
}

func (s *SettingService) setString(key string, value string) error {
	return s.saveSetting(key, value)
}

func (s *SettingService) getBool(key string) (bool, error) {
	str, err := s.getString(key)
	if err != nil {
		return false, err
	}
	return strconv.ParseBool(str)
}

func (s *SettingService) setBool(key string, value bool) error {
	return s.setString(key, strconv.FormatBool(value))
}

func (s *SettingService) getInt(key string) (int, error) {
	str, err := s.getString(key)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(str)
}

func (s *SettingService) setInt(key string, value int) error {
	return s.setString(key, strconv.Itoa(value))
}

// ResetSettings drops every stored setting, reverting to defaults.
func (s *SettingService) ResetSettings() error {
	db := database.GetDB()
	return db.Where("1 = 1").Delete(model.Setting{}).Error
}

func (s *SettingService) GetSessionMaxAge() (int, error) {
	return s.getInt("sessionMaxAge")
}

func (s *SettingService) GetPageSize() (int, error) {
	return s.getInt("pageSize")
}

// GetContentCacheTTL returns the CMS cache TTL.
func (s *SettingService) GetContentCacheTTL() (time.Duration, error) {
	secs, err := s.getInt("contentCacheTTL")
	if err != nil {
		return 0, err
	}
	return time.Duration(secs) * time.Second, nil
}

func (s *SettingService) GetAuditRetainDays() (int, error) {
	return s.getInt("auditRetainDays")
}

func (s *SettingService) GetTgBotEnabled() (bool, error) {
	return s.getBool("tgBotEnable")
}

func (s *SettingService) SetTgBotEnabled(value bool) error {
	return s.setBool("tgBotEnable", value)
}

func (s *SettingService) GetTgBotToken() (string, error) {
	return s.getString("tgBotToken")
}

func (s *SettingService) SetTgBotToken(token string) error {
	return s.setString("tgBotToken", token)
}

func (s *SettingService) GetTgBotChatId() (string, error) {
	return s.getString("tgBotChatId")
}

func (s *SettingService) SetTgBotChatId(chatId string) error {
	return s.setString("tgBotChatId", chatId)
}

func (s *SettingService) GetTgBotLoginNotify() (bool, error) {
	return s.getBool("tgBotLoginNotify")
}

func (s *SettingService) GetTwoFactorEnable() (bool, error) {
	return s.getBool("twoFactorEnable")
}

func (s *SettingService) SetTwoFactorEnable(value bool) error {
	return s.setBool("twoFactorEnable", value)
}

func (s *SettingService) GetTwoFactorToken() (string, error) {
	return s.getString("twoFactorToken")
}

func (s *SettingService) SetTwoFactorToken(token string) error {
	return s.setString("twoFactorToken", token)
}

func (s *SettingService) GetTimeLocation() (*time.Location, error) {
	l, err := s.getString("timeLocation")
	if err != nil {
		return nil, err
	}
	location, err := time.LoadLocation(l)
	if err != nil {
		defaultLocation := defaultValueMap["timeLocation"]
		location, err = time.LoadLocation(defaultLocation)
		logger.Errorf("Invalid time location %s, using default %s", l, defaultLocation)
	}
	return location, err
}

// UpdateAllSetting persists the admin settings form in one call.
// Zero-valued numeric fields and empty strings keep their stored value.
func (s *SettingService) UpdateAllSetting(all *entity.AllSetting) error {
	intFields := map[string]int{
		"sessionMaxAge":   all.SessionMaxAge,
		"pageSize":        all.PageSize,
		"contentCacheTTL": all.ContentCacheTTL,
		"auditRetainDays": all.AuditRetainDays,
	}
	for key, value := range intFields {
		if value <= 0 {
			continue
		}
		if err := s.setInt(key, value); err != nil {
			return err
		}
	}

	if all.TimeLocation != "" {
		if _, err := time.LoadLocation(all.TimeLocation); err != nil {
			return common.NewErrorf("unknown time location: %v", all.TimeLocation)
		}
		if err := s.setString("timeLocation", all.TimeLocation); err != nil {
			return err
		}
	}
	if all.TgBotToken != "" {
		if err := s.setString("tgBotToken", all.TgBotToken); err != nil {
			return err
		}
	}
	if all.TgBotChatId != "" {
		if err := s.setString("tgBotChatId", all.TgBotChatId); err != nil {
			return err
		}
	}

	if err := s.setBool("tgBotEnable", all.TgBotEnable); err != nil {
		return err
	}
	return s.setBool("tgBotLoginNotify", all.TgBotLoginNotify)
}

// GetAPIKeyHash returns the bcrypt hash of the server-to-server API key.
func (s *SettingService) GetAPIKeyHash() (string, error) {
	return s.getString("apiKeyHash")
}

// RotateAPIKey generates a fresh API key, stores its bcrypt hash and
// returns the plaintext once. The plaintext is never persisted.
func (s *SettingService) RotateAPIKey() (string, error) {
	key := random.Seq(40)
	hash, err := crypto.HashAsBcrypt(key)
	if err != nil {
		return "", err
	}
	if err := s.setString("apiKeyHash", hash); err != nil {
		return "", err
	}
	return key, nil
}

// CheckAPIKey verifies a presented API key against the stored hash.
func (s *SettingService) CheckAPIKey(key string) bool {
	hash, err := s.GetAPIKeyHash()
	if err != nil || hash == "" {
		return false
	}
	return crypto.CheckBcryptHash(hash, key)
}
