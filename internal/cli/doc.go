// Package cli wires configuration into a running bot for the fieldbot commands.
package cli
