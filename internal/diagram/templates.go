package diagram

import "strings"

// Template diagrams substituted when a source accumulates too many
// repairs. Each one is clean under the repair chain: declared, labeled
// edges, suffixed subgraph titles, styles last.
const (
	templateArchitecture = `flowchart TD
    subgraph UI["Interface Layer"]
        C[Client]
    end
    subgraph App["Application Layer"]
        S[Service]
        W[Worker]
    end
    subgraph Data["Data Layer"]
        D[(Database)]
        Q[[Queue]]
    end
    C -->|request| S
    S -->|enqueue| Q
    Q -->|job| W
    W -->|write| D
    S -->|read| D
    style D fill:#e8f0fe,stroke:#4285f4
    style Q fill:#fef7e0,stroke:#f9ab00`

	templateWorkflow = `flowchart LR
    A[Start] -->|input| B{Validate}
    B -->|ok| C[Process]
    B -->|error| E[Reject]
    C -->|result| D[Done]
    style D fill:#e6f4ea,stroke:#34a853
    style E fill:#fce8e6,stroke:#ea4335`

	templateSystem = `flowchart TD
    subgraph Edge["Edge Layer"]
        LB[Load Balancer]
    end
    subgraph Core["Core Layer"]
        A[API]
        CA[(Cache)]
    end
    LB -->|route| A
    A -->|lookup| CA
    A -->|miss| DB[(Store)]
    style CA fill:#e8f0fe,stroke:#4285f4`
)

// pickTemplate chooses a replacement diagram from hints in the broken
// source. Architecture wins on structural vocabulary, workflow on
// process vocabulary, and system is the default.
func pickTemplate(source string) (name, tmpl string) {
	s := strings.ToLower(source)
	switch {
	case containsAny(s, "architecture", "service", "component", "layer", "database"):
		return "architecture", templateArchitecture
	case containsAny(s, "workflow", "step", "process", "pipeline", "validate"):
		return "workflow", templateWorkflow
	default:
		return "system", templateSystem
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
