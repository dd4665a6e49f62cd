package settings

const (
	defaultFileSuffix         = "-compressed"
	defaultCompressionQuality = 0.8
	defaultConversionFormat   = "jpeg"
	defaultWorkers            = 1
	defaultLogLevel           = "info"
	defaultLogFormat          = "text"
)

// Default returns the settings used when no file exists or a key is absent.
func Default() Settings {
	return Settings{
		ReplaceOriginalFiles: true,
		FileSuffix:           defaultFileSuffix,
		CompressionQuality:   defaultCompressionQuality,
		ConversionFormat:     defaultConversionFormat,
		Workers:              defaultWorkers,
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
