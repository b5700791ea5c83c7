package market

import "fmt"

// GenerateInstallCommands derives the two install lines for a plugin.
// Downstream consumers copy these verbatim, so the output must stay
// byte-for-byte stable for a given input.
func GenerateInstallCommands(repoFullName, marketplaceName, pluginName string) []string {
	return []string{
		fmt.Sprintf("/plugin marketplace add %s", repoFullName),
		fmt.Sprintf("/plugin install %s@%s", pluginName, marketplaceName),
	}
}
