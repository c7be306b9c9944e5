package version

var (
	// GitCommit is the current HEAD set using ldflags.
	GitCommit string

	// Version is the built softwares version.
	Version = IBCLightSemVer
)

func init() {
	if GitCommit != "" {
		Version += "-" + GitCommit
	}
}

const (
	// IBCLightSemVer is the current version of ibclight.
	// It's the Semantic Version of the software.
	IBCLightSemVer = "0.1.0"

	// TendermintClientVersion is the version of the ibc.lightclients.tendermint
	// messages the tool decodes.
	TendermintClientVersion = "v1"
)
