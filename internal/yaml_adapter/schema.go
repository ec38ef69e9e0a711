package yaml_adapter

type document struct {
	Mammoth     *mammothDoc `yaml:"mammoth"`
	Hosts       []hostDoc   `yaml:"host"`
	Modules     []modDoc    `yaml:"mod"`
	Environment any         `yaml:"environment"`
}

type mammothDoc struct {
	ModsDir     string `yaml:"mods_dir"`
	LogFile     string `yaml:"log_file"`
	LogSeverity string `yaml:"log_severity"`
}

type hostDoc struct {
	Hostname  string   `yaml:"hostname"`
	Listen    any      `yaml:"listen"`
	StaticDir string   `yaml:"static_dir"`
	Modules   []modDoc `yaml:"mod"`
}

type modDoc struct {
	Name     string `yaml:"name"`
	Location string `yaml:"location"`
	Enabled  *bool  `yaml:"enabled"`
	Config   any    `yaml:"config"`
}
