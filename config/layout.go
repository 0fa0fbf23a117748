package config

import (
	"os"
	"path/filepath"
)

const (
	ServerExeName          = "SPT.Server.exe"
	LauncherExeName        = "SPT.Launcher.exe"
	PatchedLauncherExeName = "patched_SPT.Launcher.exe"
	GameExeName            = "EscapeFromTarkov.exe"

	// ProtectedPluginDir is the plugin subfolder owned by the base game.
	ProtectedPluginDir = "spt"
)

// Layout lists the well-known paths inside one installation root.
type Layout struct {
	Root         string
	SPTDir       string
	ManifestPath string

	ServerExe          string
	LauncherExe        string
	PatchedLauncherExe string

	LogDir         string
	LauncherConfig string
	HTTPConfig     string
	ProfilesDir    string
	ServerModsDir  string

	PluginsDir    string
	FikaConfig    string
	FikaServerDir string
	FikaClientDir string
}

// Layout resolves every well-known path under root.
func (c Config) Layout(root string) Layout {
	spt := filepath.Join(root, c.TargetSubdir)
	plugins := filepath.Join(root, "BepInEx", "plugins")
	serverMods := filepath.Join(spt, "user", "mods")

	return Layout{
		Root:         root,
		SPTDir:       spt,
		ManifestPath: filepath.Join(root, c.ManifestFile),

		ServerExe:          filepath.Join(spt, ServerExeName),
		LauncherExe:        filepath.Join(spt, LauncherExeName),
		PatchedLauncherExe: filepath.Join(spt, PatchedLauncherExeName),

		LogDir:         filepath.Join(spt, "user", "logs", "spt"),
		LauncherConfig: filepath.Join(spt, "user", "launcher", "config.json"),
		HTTPConfig:     filepath.Join(spt, "SPT_Data", "configs", "http.json"),
		ProfilesDir:    filepath.Join(spt, "user", "profiles"),
		ServerModsDir:  serverMods,

		PluginsDir:    plugins,
		FikaConfig:    filepath.Join(root, "BepInEx", "config", "com.fika.core.cfg"),
		FikaServerDir: filepath.Join(serverMods, "fika-server"),
		FikaClientDir: filepath.Join(plugins, "Fika"),
	}
}

// Launcher returns the patched launcher when present, otherwise the stock one.
func (l Layout) Launcher() string {
	if _, err := os.Stat(l.PatchedLauncherExe); err == nil {
		return l.PatchedLauncherExe
	}
	return l.LauncherExe
}
