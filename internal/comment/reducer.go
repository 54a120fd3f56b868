package comment

// Reduce computes the next collection from state and a resolved action.
//
// It never mutates state and never panics. Pending or failed actions, unknown
// kinds and payloads of the wrong type leave state unchanged.
func Reduce(state Collection, action Action) Collection {
	if action.Failed() || action.Pending() {
		return state
	}

	switch action.Kind {
	case KindLoad:
		switch p := action.Payload.(type) {
		case Collection:
			return reduceLoad(p)
		case []Comment:
			return reduceLoad(p)
		}
	case KindCreate:
		if p, ok := action.Payload.(Comment); ok {
			return reduceCreate(state, p)
		}
	case KindDelete:
		if p, ok := action.Payload.(Target); ok {
			return reduceDelete(state, p.ID)
		}
	}

	return state
}

// reduceLoad replaces the collection, keeping the first occurrence of a
// repeated id.
func reduceLoad(payload Collection) Collection {
	out := make(Collection, 0, len(payload))
	seen := make(map[ID]struct{}, len(payload))
	for _, cm := range payload {
		if cm.ID != 0 {
			if _, dup := seen[cm.ID]; dup {
				continue
			}
			seen[cm.ID] = struct{}{}
		}
		out = append(out, cm)
	}
	return out
}

func reduceCreate(state Collection, created Comment) Collection {
	out := make(Collection, 0, len(state)+1)
	for _, cm := range state {
		if created.ID != 0 && cm.ID == created.ID {
			continue
		}
		out = append(out, cm)
	}
	return append(out, created)
}

func reduceDelete(state Collection, id ID) Collection {
	out := make(Collection, 0, len(state))
	for _, cm := range state {
		if cm.ID == id {
			continue
		}
		out = append(out, cm)
	}
	return out
}
