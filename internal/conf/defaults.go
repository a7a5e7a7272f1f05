// conf/defaults.go default values for settings
package conf

import "github.com/spf13/viper"

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "penn")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "penn.log")

	viper.SetDefault("model.path", "model/pitchnet.tflite")
	viper.SetDefault("model.name", "pitchnet")
	viper.SetDefault("model.threads", 0)
	viper.SetDefault("model.batchsize", 1024)
	viper.SetDefault("model.autoregressive", false)

	viper.SetDefault("data.dir", "data")

	viper.SetDefault("eval.dir", "eval")
	viper.SetDefault("eval.cachepath", "eval/predictions.db")
	viper.SetDefault("eval.partition", "test")
	viper.SetDefault("eval.skippredictions", false)
}
