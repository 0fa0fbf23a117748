package config

const (
	// SoftwareVersion is compared with the feed's latest_version by the update check.
	SoftwareVersion = "1.2.0"

	DefaultAnnouncementURL = "https://raw.githubusercontent.com/MingYuePop/tkflxbInstallationscript/refs/heads/main/announcement.json"

	// DefaultReadyKeyword is printed by the server once it accepts connections.
	DefaultReadyKeyword = "服务端已开启，游戏愉快"
)
