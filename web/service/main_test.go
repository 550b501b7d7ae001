package service

import (
	"os"
	"testing"

	"github.com/op/go-logging"

	"github.com/satyogainstitute/portal/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger(logging.DEBUG)
	os.Exit(m.Run())
}
