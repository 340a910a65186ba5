// Sagecycle - SageMaker lifecycle janitor for CI/CD pipelines.
// Wait. Clean. Release.
package main

func main() {
	Execute()
}
