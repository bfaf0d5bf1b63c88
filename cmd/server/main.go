// Dashboard control plane: the back end for managing embeddable widgets,
// recipes, placements, audience segments and analytics.
package main

func main() {
	Execute()
}
