// Package hcl_adapter implements config.Loader for HCL documents.
//
// A document may contain one `mammoth` block, any number of `host` blocks
// (each with nested `mod "<name>"` blocks), global `mod "<name>"` blocks
// and an `environment` attribute:
//
//	mammoth {
//	  mods_dir     = "./mods"
//	  log_file     = "./mammoth.log"
//	  log_severity = "warning"
//	}
//
//	host {
//	  hostname = "example.com"
//	  listen   = { port = 8443, cert = "cert.pem", key = "key.pem" }
//	  mod "print" {}
//	}
//
//	mod "print" {
//	  config = { greeting = "hello" }
//	}
package hcl_adapter
