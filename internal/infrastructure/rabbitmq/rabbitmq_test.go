package rabbitmq

import (
	"testing"
)

func TestQueueDeclarationsPairTopicsWithQuarantines(t *testing.T) {
	decls := queueDeclarations([]string{"wallet-events", "auth-events"})

	if len(decls) != 4 {
		t.Fatalf("expected 4 declarations, got %d", len(decls))
	}

	byName := make(map[string]queueDeclaration, len(decls))
	for _, d := range decls {
		byName[d.name] = d
	}

	for _, topic := range []string{"wallet-events", "auth-events"} {
		main, ok := byName[topic]
		if !ok {
			t.Fatalf("missing declaration for %s", topic)
		}
		if main.args["x-dead-letter-routing-key"] != topic+QuarantineSuffix {
			t.Errorf("%s: expected dead-letter routing to its quarantine, got %v", topic, main.args)
		}

		quarantine, ok := byName[topic+QuarantineSuffix]
		if !ok {
			t.Fatalf("missing quarantine queue for %s", topic)
		}
		if quarantine.args != nil {
			t.Errorf("quarantine %s must not dead-letter further, got %v", quarantine.name, quarantine.args)
		}
	}

	// The quarantine must exist before its topic queue can route to it.
	if decls[0].name != "wallet-events"+QuarantineSuffix {
		t.Errorf("expected quarantine declared first, got %s", decls[0].name)
	}
}
