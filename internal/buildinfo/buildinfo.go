// Package buildinfo carries version details stamped in with -ldflags.
package buildinfo

var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

func Info() map[string]string {
	return map[string]string{
		"service": "merchantpay",
		"version": Version,
		"commit":  Commit,
		"builtAt": BuiltAt,
	}
}
