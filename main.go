package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/op/go-logging"
	"github.com/spf13/cobra"

	"github.com/satyogainstitute/portal/config"
	"github.com/satyogainstitute/portal/database"
	"github.com/satyogainstitute/portal/logger"
	"github.com/satyogainstitute/portal/web"
	"github.com/satyogainstitute/portal/web/service"
)

func runWebServer() {
	log.Printf("%v %v", config.GetName(), config.GetVersion())

	switch config.GetLogLevel() {
	case config.Debug:
		logger.InitLogger(logging.DEBUG)
	case config.Info:
		logger.InitLogger(logging.INFO)
	case config.Notice:
		logger.InitLogger(logging.NOTICE)
	case config.Warn:
		logger.InitLogger(logging.WARNING)
	case config.Error:
		logger.InitLogger(logging.ERROR)
	default:
		log.Fatal("unknown log level:", config.GetLogLevel())
	}

	err := database.InitDB(config.GetDBPath())
	if err != nil {
		log.Fatal(err)
	}

	server := web.NewServer()
	err = server.Start()
	if err != nil {
		log.Println(err)
		return
	}

	sigCh := make(chan os.Signal, 1)
	// Trap shutdown signals
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGTERM)
	for {
		sig := <-sigCh

		switch sig {
		case syscall.SIGHUP:
			err := server.Stop()
			if err != nil {
				logger.Warning("stop server err:", err)
			}
			server = web.NewServer()
			err = server.Start()
			if err != nil {
				log.Println(err)
				return
			}
		default:
			_ = server.Stop()
			return
		}
	}
}

func resetSetting() {
	err := database.InitDB(config.GetDBPath())
	if err != nil {
		fmt.Println(err)
		return
	}

	settingService := service.SettingService{}
	err = settingService.ResetSettings()
	if err != nil {
		fmt.Println("reset setting failed:", err)
	} else {
		fmt.Println("reset setting success")
	}
}

func showSetting() {
	err := database.InitDB(config.GetDBPath())
	if err != nil {
		fmt.Println(err)
		return
	}

	settingService := service.SettingService{}
	sessionMaxAge, err := settingService.GetSessionMaxAge()
	if err != nil {
		fmt.Println("get sessionMaxAge failed:", err)
	}
	pageSize, err := settingService.GetPageSize()
	if err != nil {
		fmt.Println("get pageSize failed:", err)
	}
	cacheTTL, err := settingService.GetContentCacheTTL()
	if err != nil {
		fmt.Println("get contentCacheTTL failed:", err)
	}
	tgBotEnabled, _ := settingService.GetTgBotEnabled()

	fmt.Println("current portal settings as follows:")
	fmt.Println("sessionMaxAge:", sessionMaxAge, "minutes")
	fmt.Println("pageSize:", pageSize)
	fmt.Println("contentCacheTTL:", cacheTTL)
	fmt.Println("tgBotEnabled:", tgBotEnabled)
}

func rotateAPIKey() {
	err := database.InitDB(config.GetDBPath())
	if err != nil {
		fmt.Println(err)
		return
	}

	settingService := service.SettingService{}
	key, err := settingService.RotateAPIKey()
	if err != nil {
		fmt.Println("rotate api key failed:", err)
		return
	}
	fmt.Println("new api key (store it now, it is not shown again):", key)
}

func updateTgbotSetting(tgBotToken string, tgBotChatid string, enable bool) {
	err := database.InitDB(config.GetDBPath())
	if err != nil {
		fmt.Println(err)
		return
	}

	settingService := service.SettingService{}

	if tgBotToken != "" {
		if err := settingService.SetTgBotToken(tgBotToken); err != nil {
			fmt.Println(err)
			return
		}
		logger.Info("updateTgbotSetting tgBotToken success")
	}

	if tgBotChatid != "" {
		if err := settingService.SetTgBotChatId(tgBotChatid); err != nil {
			fmt.Println(err)
			return
		}
		logger.Info("updateTgbotSetting tgBotChatid success")
	}

	if err := settingService.SetTgBotEnabled(enable); err != nil {
		fmt.Println(err)
		return
	}
	logger.Infof("SetTgBotEnabled[%v] success", enable)
}

func main() {
	_ = godotenv.Load()

	var rootCmd = &cobra.Command{
		Use: "sy-portal",
	}

	var runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the web server",
		Run: func(cmd *cobra.Command, args []string) {
			runWebServer()
		},
	}

	var settingCmd = &cobra.Command{
		Use:   "setting",
		Short: "Set settings",
	}

	var resetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Reset all settings",
		Run: func(cmd *cobra.Command, args []string) {
			resetSetting()
		},
	}

	var showCmd = &cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		Run: func(cmd *cobra.Command, args []string) {
			showSetting()
		},
	}

	var rotateCmd = &cobra.Command{
		Use:   "rotate-api-key",
		Short: "Rotate the server-to-server API key",
		Run: func(cmd *cobra.Command, args []string) {
			rotateAPIKey()
		},
	}

	var tgbotCmd = &cobra.Command{
		Use:   "tgbot",
		Short: "Update telegram bot settings",
		Run: func(cmd *cobra.Command, args []string) {
			tgbottoken, _ := cmd.Flags().GetString("tgbottoken")
			tgbotchatid, _ := cmd.Flags().GetString("tgbotchatid")
			enabletgbot, _ := cmd.Flags().GetBool("enabletgbot")
			updateTgbotSetting(tgbottoken, tgbotchatid, enabletgbot)
		},
	}

	tgbotCmd.Flags().String("tgbottoken", "", "set telegram bot token")
	tgbotCmd.Flags().String("tgbotchatid", "", "set telegram bot chat id")
	tgbotCmd.Flags().Bool("enabletgbot", false, "enable telegram bot notifications")

	settingCmd.AddCommand(resetCmd, showCmd, rotateCmd, tgbotCmd)
	rootCmd.AddCommand(runCmd, settingCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println("execute failed:", err)
		os.Exit(1)
	}
}
