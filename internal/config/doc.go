// Package config loads the ussdflow binary configuration.
//
// Values are layered: built-in defaults, then a YAML file, then .env files,
// then USSDFLOW_* environment variables. For example:
//
//	host: adb
//	store:
//	  driver: redis
//	  redis_addr: localhost:6379
//	controller:
//	  send_delay: 750ms
//	menu:
//	  defaults:
//	    main:
//	      cash_out: "3"
package config
