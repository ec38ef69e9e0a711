package hcl_adapter

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot is a struct used to decode all possible top-level content from
// any file.
type fileRoot struct {
	Mammoth     *mammothBlock  `hcl:"mammoth,block"`
	Hosts       []*hostBlock   `hcl:"host,block"`
	Modules     []*modBlock    `hcl:"mod,block"`
	Environment hcl.Expression `hcl:"environment,optional"`
}

type mammothBlock struct {
	ModsDir     string `hcl:"mods_dir,optional"`
	LogFile     string `hcl:"log_file,optional"`
	LogSeverity string `hcl:"log_severity,optional"`
}

type hostBlock struct {
	Hostname  string         `hcl:"hostname,optional"`
	Listen    hcl.Expression `hcl:"listen"`
	StaticDir string         `hcl:"static_dir,optional"`
	Modules   []*modBlock    `hcl:"mod,block"`
}

type modBlock struct {
	Name     string         `hcl:"name,label"`
	Location string         `hcl:"location,optional"`
	Enabled  *bool          `hcl:"enabled,optional"`
	Config   hcl.Expression `hcl:"config,optional"`
}
