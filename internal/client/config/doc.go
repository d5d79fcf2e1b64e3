// Package config loads runtime configuration for the FieldKeeper client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJSON) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the backend gRPC endpoint
//	-i int      online status check interval (seconds)
//	-s int      background sync interval (seconds)
//	-d string   path of the local SQLite database
//	-l string   path of the rotated log file
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be strings like "3s" or
// integer nanoseconds. Absent keys keep their earlier value:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "sync_interval": "1m",
//	  "call_timeout": "15s",
//	  "batch_size": 50,
//	  "page_size": 100,
//	  "tombstone_retention": "720h",
//	  "database_path": "fieldkeeper.db",
//	  "log_file": "fieldkeeper.log",
//	  "log_level": "info"
//	}
package config
