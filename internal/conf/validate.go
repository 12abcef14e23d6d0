package conf

import "fmt"

// ValidateSettings checks the loaded settings for inconsistencies that
// would only surface later as confusing runtime failures.
func ValidateSettings(settings *Settings) error {
	if settings.Output.SQLite.Enabled && settings.Output.MySQL.Enabled {
		return fmt.Errorf("only one of output.sqlite and output.mysql may be enabled")
	}
	if !settings.Output.SQLite.Enabled && !settings.Output.MySQL.Enabled {
		return fmt.Errorf("no database output enabled, enable output.sqlite or output.mysql")
	}
	if settings.Output.SQLite.Enabled && settings.Output.SQLite.Path == "" {
		return fmt.Errorf("output.sqlite.path must not be empty")
	}
	if settings.Output.MySQL.Enabled {
		if settings.Output.MySQL.Host == "" || settings.Output.MySQL.Database == "" {
			return fmt.Errorf("output.mysql.host and output.mysql.database must be set")
		}
	}

	if settings.Search.DefaultPageSize <= 0 {
		return fmt.Errorf("search.defaultpagesize must be positive, got %d", settings.Search.DefaultPageSize)
	}
	if settings.Search.MaxPageSize < settings.Search.DefaultPageSize {
		return fmt.Errorf("search.maxpagesize %d is below search.defaultpagesize %d",
			settings.Search.MaxPageSize, settings.Search.DefaultPageSize)
	}
	if settings.Search.DefaultWindowHours <= 0 {
		return fmt.Errorf("search.defaultwindowhours must be positive, got %d", settings.Search.DefaultWindowHours)
	}

	if settings.Stats.GroupByLimit <= 0 {
		return fmt.Errorf("stats.groupbylimit must be positive, got %d", settings.Stats.GroupByLimit)
	}

	return nil
}
