package fika

import (
	"fmt"

	"spt-installer/confedit"
	"spt-installer/config"
)

func serverURL(host string) string {
	return fmt.Sprintf("https://%s:%d", host, Port)
}

func writeLauncher(l config.Layout, host string) error {
	err := confedit.UpdateJSON(l.LauncherConfig, map[string]any{
		"IsDevMode":  "true",
		"Server.Url": serverURL(host),
	})
	if err != nil {
		return fmt.Errorf("launcher config: %w", err)
	}
	return nil
}

func writeNetwork(l config.Layout, forceIP string) error {
	_, err := confedit.UpdateCfg(l.FikaConfig, networkSection, map[string]string{
		"Force IP":      forceIP,
		"Force Bind IP": anyAddress,
	})
	if err != nil {
		return fmt.Errorf("multiplayer config: %w", err)
	}
	return nil
}

// writeHTTP is skipped when the server has not generated http.json.
func writeHTTP(l config.Layout, ip, backendIP string) error {
	if !exists(l.HTTPConfig) {
		return nil
	}
	err := confedit.UpdateJSON(l.HTTPConfig, map[string]any{
		"ip":        ip,
		"backendIp": backendIP,
	})
	if err != nil {
		return fmt.Errorf("server http config: %w", err)
	}
	return nil
}
