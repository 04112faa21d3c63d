package ledger

import "github.com/shopspring/decimal"

// findByID walks the forest depth-first and returns the matching node.
func findByID(roots []*Account, id int64) *Account {
	for _, root := range roots {
		if found := searchID(root, id); found != nil {
			return found
		}
	}
	return nil
}

func searchID(node *Account, id int64) *Account {
	if node.ID == id {
		return node
	}
	for _, child := range node.Children {
		if found := searchID(child, id); found != nil {
			return found
		}
	}
	return nil
}

// findByCode walks the forest depth-first and returns the matching node.
func findByCode(roots []*Account, code string) *Account {
	for _, root := range roots {
		if found := searchCode(root, code); found != nil {
			return found
		}
	}
	return nil
}

func searchCode(node *Account, code string) *Account {
	if node.Code == code {
		return node
	}
	for _, child := range node.Children {
		if found := searchCode(child, code); found != nil {
			return found
		}
	}
	return nil
}

// applyDelta adds delta to the target account and to every ancestor on
// the path from a root to it. The tree is untouched when the id does not
// resolve; the caller must treat that as fatal to the whole posting.
func applyDelta(roots []*Account, id int64, delta decimal.Decimal) error {
	for _, root := range roots {
		if addDelta(root, id, delta) {
			return nil
		}
	}
	return ErrAccountNotFound
}

func addDelta(node *Account, id int64, delta decimal.Decimal) bool {
	if node.ID == id {
		node.Balance = node.Balance.Add(delta)
		return true
	}
	for _, child := range node.Children {
		if addDelta(child, id, delta) {
			node.Balance = node.Balance.Add(delta)
			return true
		}
	}
	return false
}

// walk visits every node in the forest depth-first.
func walk(roots []*Account, fn func(node *Account, depth int)) {
	var visit func(node *Account, depth int)
	visit = func(node *Account, depth int) {
		fn(node, depth)
		for _, child := range node.Children {
			visit(child, depth+1)
		}
	}
	for _, root := range roots {
		visit(root, 0)
	}
}
