package types

import "errors"

// Config holds store location and the ambient defaults applied to rows
// whose value bags omit the corresponding admin columns.
type Config struct {
	DataDir    string `json:"data_dir" yaml:"data_dir"`
	DBFileName string `json:"db_file" yaml:"db_file"`
	ActiveUser string `json:"active_user" yaml:"active_user"`
	Locale     string `json:"locale" yaml:"locale"`

	// Default row-access filter stamped onto inserted rows that carry
	// no explicit filter. Empty means unfiltered (NULL).
	FilterType  string `json:"filter_type" yaml:"filter_type"`
	FilterValue string `json:"filter_value" yaml:"filter_value"`
}

// Fallbacks applied by the getters below.
const (
	DefaultDBFileName = "fieldstore.db"
	DefaultActiveUser = "anonymous"
	DefaultLocale     = "en_US"
)

// ErrDataDirEmpty rejects a Config with no data directory.
var ErrDataDirEmpty = errors.New("data_dir must not be empty")

// Validate checks that the Config is well-formed.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return ErrDataDirEmpty
	}
	return nil
}

// GetDBFileName returns the database file name, defaulted.
func (c Config) GetDBFileName() string {
	if c.DBFileName == "" {
		return DefaultDBFileName
	}
	return c.DBFileName
}

// GetActiveUser returns the savepoint-creator default, defaulted.
func (c Config) GetActiveUser() string {
	if c.ActiveUser == "" {
		return DefaultActiveUser
	}
	return c.ActiveUser
}

// GetLocale returns the locale default, defaulted.
func (c Config) GetLocale() string {
	if c.Locale == "" {
		return DefaultLocale
	}
	return c.Locale
}
