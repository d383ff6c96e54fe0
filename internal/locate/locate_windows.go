//go:build windows

package locate

import (
	"golang.org/x/sys/windows/registry"

	"github.com/adamancini/ersc/internal/log"
)

const uninstallKey = `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall\Steam App ` + SteamAppID

// registryInstallLocation reads InstallLocation from the Steam uninstall entry.
func registryInstallLocation() (string, bool) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, uninstallKey, registry.QUERY_VALUE)
	if err != nil {
		log.Debugf("registry key %s: %v", uninstallKey, err)
		return "", false
	}
	defer func() { _ = key.Close() }()

	location, _, err := key.GetStringValue("InstallLocation")
	if err != nil || location == "" {
		return "", false
	}
	return location, true
}

func defaultSteamRoots() []string {
	roots := []string{
		`C:\Program Files (x86)\Steam`,
		`C:\Program Files\Steam`,
	}

	key, err := registry.OpenKey(registry.CURRENT_USER, `Software\Valve\Steam`, registry.QUERY_VALUE)
	if err != nil {
		return roots
	}
	defer func() { _ = key.Close() }()

	if p, _, err := key.GetStringValue("SteamPath"); err == nil && p != "" {
		roots = append([]string{p}, roots...)
	}
	return roots
}

func defaultScanDirs() []string {
	var dirs []string
	for _, drive := range []string{"C", "D", "E", "F", "G"} {
		dirs = append(dirs,
			drive+`:\SteamLibrary\steamapps\common`,
			drive+`:\Steam\steamapps\common`,
			drive+`:\Games`,
		)
	}
	return append(dirs, `C:\Program Files (x86)\Steam\steamapps\common`)
}
