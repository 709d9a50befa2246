// Package main (cmd/factoryctl) is a command line client for factoryd.
//
// Example usage:
//
//	factoryctl init --params factory.yaml
//	factoryctl complete --registry 4444444444444444444444444444444444444444
//	factoryctl pay --sender 0202020202020202020202020202020202020202 \
//	    --amount 1000 --medium cccccccccccccccccccccccccccccccccccccccc
//	factoryctl config
package main
