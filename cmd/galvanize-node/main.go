// Command galvanize-node runs the call-for-service button node's control
// core: node lifecycle, send, and power management wired against either real
// hardware collaborators or a host-framework stdio bridge.
package main

func main() {
	Execute()
}
