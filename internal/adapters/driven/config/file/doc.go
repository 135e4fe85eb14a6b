// Package file provides the TOML file implementation of the ConfigStore port.
//
// Keys use dot notation ("embedding.provider"). They are flattened when the
// file is read and written back as nested tables.
package file
