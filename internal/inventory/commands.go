// Package inventory collects hardware information from the machine the
// agent runs on and bundles it for submission.
package inventory

// Command is one inspection command in the fixed collection set. The
// slug names the output files: <slug>.txt for stdout, <slug>.err for
// stderr.
type Command struct {
	Slug string
	Argv []string
}

// commands is the inspection set. Every command runs even when earlier
// ones fail; a missing tool just leaves its .err file behind.
var commands = []Command{
	{Slug: "dmidecode", Argv: []string{"dmidecode"}},
	{Slug: "free-m", Argv: []string{"free", "-m"}},
	{Slug: "lsblk", Argv: []string{"lsblk"}},
	{Slug: "lspci", Argv: []string{"lspci"}},
	{Slug: "lspci-vv", Argv: []string{"lspci", "-vv"}},
	{Slug: "lspci-vvnnqD", Argv: []string{"lspci", "-vvnnqD"}},
	{Slug: "lshw", Argv: []string{"lshw"}},
	{Slug: "lscpu", Argv: []string{"lscpu"}},
	{Slug: "lsmod", Argv: []string{"lsmod"}},
	{Slug: "nvme-list", Argv: []string{"nvme", "list"}},
	{Slug: "ls-dev-disk-by-id", Argv: []string{"ls", "-l", "/dev/disk/by-id"}},
	{Slug: "ls-dev-disk-by-path", Argv: []string{"ls", "-l", "/dev/disk/by-path"}},
	{Slug: "ls-sys-class-net", Argv: []string{"ls", "-l", "/sys/class/net"}},
	{Slug: "ip-address-list", Argv: []string{"ip", "address", "list"}},
	{Slug: "ip-link-list", Argv: []string{"ip", "link", "list"}},
}

// Commands returns a copy of the inspection command set.
func Commands() []Command {
	out := make([]Command, len(commands))
	copy(out, commands)
	return out
}

// RequiredPackages are the OS packages providing the inspection tools.
var RequiredPackages = []string{
	"dmidecode",
	"lshw",
	"nvme-cli",
	"pciutils",
	"usbutils",
}
