package db

import (
	"gorm.io/gorm"
)

// EventKind classifies a history entry.
type EventKind string

const (
	EventInstall       EventKind = "install"
	EventModInstall    EventKind = "mod_install"
	EventModUninstall  EventKind = "mod_uninstall"
	EventModsCleared   EventKind = "mods_cleared"
	EventServerSwitch  EventKind = "server_switch"
	EventModeChange    EventKind = "mode_change"
	EventGameUninstall EventKind = "game_uninstall"
)

// Mode is the multiplayer mode of an installation.
type Mode string

const (
	ModeNone   Mode = ""
	ModeHost   Mode = "host"
	ModeClient Mode = "client"
)

// HistoryEntry records one operation performed against an installation root
type HistoryEntry struct {
	gorm.Model
	InstallRoot string    `gorm:"index"`
	Kind        EventKind // What happened
	Subject     string    // Mod name, archive name or mode
	Version     string    // Version token, if any
	Detail      string    // Free-form summary such as deletion counts
}

// MultiplayerConfig holds the last configured multiplayer mode per installation root
type MultiplayerConfig struct {
	gorm.Model
	InstallRoot string `gorm:"uniqueIndex"`
	Mode        Mode
	HostIP      string
	MyIP        string
}
