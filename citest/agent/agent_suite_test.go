package agent_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// Suite bootstrap (TestXxx + RegisterFailHandler + RunSpecs). No
// BeforeSuite/AfterSuite server is needed here: every scenario wires its own
// fake transport.Client and tool.Registry in-process instead of starting a
// real HTTP server, since the runtime/agent stack talks to transport.Client
// directly rather than over an HTTP surface.
func TestAgent(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Agent Suite")
}
