// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "promptkeep")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "promptkeep.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 10485760)

	viper.SetDefault("ingest.datapath", ".")

	viper.SetDefault("search.defaultpagesize", 20)
	viper.SetDefault("search.maxpagesize", 100)
	viper.SetDefault("search.defaultwindowhours", 72)

	viper.SetDefault("stats.groupbylimit", 2000)
	viper.SetDefault("stats.cachettlseconds", 60)

	viper.SetDefault("webserver.enabled", false)
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.debug", false)

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "promptkeep.db")

	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "promptkeep")
	viper.SetDefault("output.mysql.password", "")
	viper.SetDefault("output.mysql.database", "promptkeep")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")
}
