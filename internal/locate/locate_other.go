//go:build !windows

package locate

func registryInstallLocation() (string, bool) {
	return "", false
}

func defaultSteamRoots() []string {
	var roots []string
	for _, p := range [][]string{
		{".steam", "steam"},
		{".local", "share", "Steam"},
		{".var", "app", "com.valvesoftware.Steam", ".local", "share", "Steam"},
		{"Library", "Application Support", "Steam"},
	} {
		if root := homeJoin(p...); root != "" {
			roots = append(roots, root)
		}
	}
	return roots
}

func defaultScanDirs() []string {
	if games := homeJoin("Games"); games != "" {
		return []string{games}
	}
	return nil
}
