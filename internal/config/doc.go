// Package config loads the emoted configuration.
//
// Settings come from, lowest priority first:
//
//  1. built-in defaults
//  2. the user file: ~/.config/emoted/config.yaml (or .toml, .json)
//  3. the project file: ./.emoted/config.yaml
//  4. environment variables prefixed EMOTED_, with "." in keys written
//     as "_" (EMOTED_LOG_LEVEL, EMOTED_SCRIPTS_WATCH)
//  5. command-line flags bound with Load
//
// An explicit --config file replaces both files in 2 and 3.
//
// Example:
//
//	locale: de-DE
//	encoding: UTF-16
//	plugins: [emoji, find]
//	log:
//	  level: debug
//	scripts:
//	  paths: [~/emoted-scripts]
//	  watch: true
//	  timeout: 500ms
//	  settings:
//	    signature:
//	      name: Jo
//	keymap:
//	  - keys: ctrl+alt+c
//	    action: insert
//	    at: line-start
//	    text: "// "
package config
