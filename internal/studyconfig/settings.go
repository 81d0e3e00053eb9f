package studyconfig

// ResourceConfig holds the per-resource workflow manager settings.
type ResourceConfig struct {
	// Endpoint is the socket.io URL of a remote workflow server.
	Endpoint   string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Namespace  string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Queue      string `json:"queue,omitempty" yaml:"queue,omitempty"`
	Login      string `json:"login,omitempty" yaml:"login,omitempty"`
	Password   string `json:"password,omitempty" yaml:"password,omitempty"`
	RSAKeyPass string `json:"rsa_key_pass,omitempty" yaml:"rsa_key_pass,omitempty"`
	// TransferRoot is where transferred files are staged on the resource.
	// Sent with workflows using the transfer mode.
	TransferRoot string `json:"transfer_root,omitempty" yaml:"transfer_root,omitempty"`
	// SharedRoot is the mount point of the shared study directories on the
	// resource. Sent with workflows using the translate modes.
	SharedRoot string `json:"shared_root,omitempty" yaml:"shared_root,omitempty"`
}

// Settings are the study configuration attributes, as stored in files.
type Settings struct {
	FSLConfig string `json:"fsl_config,omitempty" yaml:"fsl_config,omitempty"`
	FSLPrefix string `json:"fsl_prefix,omitempty" yaml:"fsl_prefix,omitempty"`
	UseFSL    bool   `json:"use_fsl" yaml:"use_fsl"`

	MatlabExec string `json:"matlab_exec,omitempty" yaml:"matlab_exec,omitempty"`
	UseMatlab  bool   `json:"use_matlab" yaml:"use_matlab"`

	UseSomaWorkflow                      bool                       `json:"use_soma_workflow" yaml:"use_soma_workflow"`
	SomaWorkflowComputingResource        string                     `json:"somaworkflow_computing_resource,omitempty" yaml:"somaworkflow_computing_resource,omitempty"`
	SomaWorkflowComputingResourcesConfig map[string]*ResourceConfig `json:"somaworkflow_computing_resources_config,omitempty" yaml:"somaworkflow_computing_resources_config,omitempty"`

	OutputDirectory  string `json:"output_directory,omitempty" yaml:"output_directory,omitempty"`
	InputDirectory   string `json:"input_directory,omitempty" yaml:"input_directory,omitempty"`
	ModulesPath      string `json:"modules_path,omitempty" yaml:"modules_path,omitempty"`
	WorkflowDatabase string `json:"workflow_database,omitempty" yaml:"workflow_database,omitempty"`
}
