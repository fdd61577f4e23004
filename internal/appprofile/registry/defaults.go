package registry

// RegisterDefaults registers the keys the graphics driver understands.
func (r *Registry) RegisterDefaults() {
	for _, k := range defaultKeys {
		r.MustRegister(k)
	}
}

var defaultKeys = []Key{
	{
		Name: "GLFSAAMode",
		Type: TypeInteger,
		Description: "Enables full-scene antialiasing for OpenGL processes. Takes the same integer " +
			"used to configure FSAA through the NV-CONTROL X extension; " +
			"`nvidia-settings --query=fsaa --verbose` lists the available values.",
	},
	{
		Name: "GLLogMaxAniso",
		Type: TypeInteger,
		Description: "Enables anisotropic texture filtering. 0 disables it; 1, 2, 3 and 4 select " +
			"2x, 4x, 8x and 16x filtering.",
	},
	{
		Name: "GLNoDsoFinalizer",
		Type: TypeBoolean,
		Description: "Works around multithreaded applications where one thread exits while others " +
			"are still running OpenGL code. True or false.",
	},
	{
		Name: "GLSingleThreaded",
		Type: TypeBoolean,
		Description: "Works around legacy dynamic loaders that crash applications linked against " +
			"pthreads which dlopen() libGL more than once. True or false.",
	},
	{
		Name: "GLSyncDisplayDevice",
		Type: TypeString,
		Description: "Names the display device to sync with when sync to vblank is enabled, " +
			"for example \"CRT-1\".",
	},
	{
		Name:        "GLSyncToVblank",
		Type:        TypeBoolean,
		Description: "Enables sync to vblank. True or false.",
	},
	{
		Name:        "GLSortFbconfigs",
		Type:        TypeBoolean,
		Description: "FBConfigs are sorted as the GLX specification describes unless this is set to false.",
	},
	{
		Name:        "GLAllowUnofficialProtocol",
		Type:        TypeBoolean,
		Description: "When true, the client-side GLX implementation may send incomplete GLX protocol.",
	},
	{
		Name: "GLSELinuxBooleans",
		Type: TypeString,
		Description: "Overrides detection of SELinux policy booleans, which can help when running " +
			"under SELinux in permissive mode. See __GL_SELINUX_BOOLEANS in the driver README " +
			"for the string format.",
	},
	{
		Name:        "GLShaderDiskCache",
		Type:        TypeBoolean,
		Description: "Enables the shader disk cache for direct rendering. True or false.",
	},
	{
		Name:        "GLShaderDiskCachePath",
		Type:        TypeString,
		Description: "Directory where shader caches for the application are stored.",
	},
	{
		Name: "GLYield",
		Type: TypeString,
		Description: "Controls how the driver yields. \"USLEEP\" calls usleep(0), \"NOTHING\" never " +
			"yields, any other string calls sched_yield().",
	},
	{
		Name: "GLThreadedOptimizations",
		Type: TypeBoolean,
		Description: "Enables multi-threaded optimizations in the OpenGL driver. " +
			"True or false.",
	},
	{
		Name:        "GLDoom3",
		Type:        TypeBoolean,
		Description: "Enables SLI and Multi-GPU settings tuned for games such as Doom 3 and Quake 4. True or false.",
	},
	{
		Name: "GLExtensionStringVersion",
		Type: TypeStringOrInteger,
		Description: "Forces glXQueryExtensionsString() to return the extension string of an earlier " +
			"driver release, e.g. \"17700\" for the 177 series. Works around applications that " +
			"expect a short extension string.",
	},
}
