// Package graph implements the prerequisite-DAG operations: cycle
// detection, prerequisite-chain expansion and topological ordering.
// Concepts are addressed by stable ids; adjacency is rebuilt per operation
// from the id-list prerequisites, so there are no pointer cycles to own.
package graph

import (
	"fmt"
	"sort"

	"adaptive-assessment-service/internal/domain"
)

// WouldCreateCycle reports whether adding proposedPrereq as a prerequisite
// of conceptID would close a loop. Self-reference is always a cycle;
// otherwise we BFS forward from the proposed prerequisite through the
// dependents adjacency and check whether conceptID is reachable.
func WouldCreateCycle(conceptID, proposedPrereq string, concepts []domain.ConceptNode) bool {
	if conceptID == proposedPrereq {
		return true
	}

	dependents := dependentsAdjacency(concepts)

	visited := map[string]struct{}{proposedPrereq: {}}
	queue := []string{proposedPrereq}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == conceptID {
			return true
		}
		for _, dep := range dependents[current] {
			if _, seen := visited[dep]; seen {
				continue
			}
			visited[dep] = struct{}{}
			queue = append(queue, dep)
		}
	}
	return false
}

// PrerequisiteChain returns the concept's full transitive prerequisite chain
// in valid study order, the concept itself last. Diamond-shaped graphs are
// handled by a visited set so shared prerequisites appear once.
func PrerequisiteChain(conceptID string, concepts []domain.ConceptNode) ([]domain.ConceptNode, error) {
	index := indexByID(concepts)
	if _, ok := index[conceptID]; !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrConceptNotFound, conceptID)
	}

	var chain []domain.ConceptNode
	visited := make(map[string]struct{})

	var visit func(id string) error
	visit = func(id string) error {
		if _, seen := visited[id]; seen {
			return nil
		}
		visited[id] = struct{}{}
		node, ok := index[id]
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrDanglingPrerequisite, id)
		}
		for _, prereq := range node.Prerequisites {
			if err := visit(prereq); err != nil {
				return err
			}
		}
		chain = append(chain, node)
		return nil
	}

	if err := visit(conceptID); err != nil {
		return nil, err
	}
	return chain, nil
}

// TopologicalSort orders concepts so every prerequisite precedes its
// dependents (Kahn's algorithm, in-degree = prerequisite count). A sorted
// list shorter than the input means a cycle; that is a hard error, never a
// silently truncated order.
func TopologicalSort(concepts []domain.ConceptNode) ([]domain.ConceptNode, error) {
	index := indexByID(concepts)
	inDegree := make(map[string]int, len(concepts))
	dependents := make(map[string][]string, len(concepts))

	for _, c := range concepts {
		inDegree[c.ID] = 0
	}
	for _, c := range concepts {
		for _, prereq := range c.Prerequisites {
			if _, ok := index[prereq]; !ok {
				return nil, fmt.Errorf("%w: %s -> %s", domain.ErrDanglingPrerequisite, c.ID, prereq)
			}
			inDegree[c.ID]++
			dependents[prereq] = append(dependents[prereq], c.ID)
		}
	}

	var queue []string
	for _, c := range concepts {
		if inDegree[c.ID] == 0 {
			queue = append(queue, c.ID)
		}
	}

	sorted := make([]domain.ConceptNode, 0, len(concepts))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		sorted = append(sorted, index[current])
		for _, dep := range dependents[current] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(sorted) < len(concepts) {
		return nil, fmt.Errorf("%w: %d of %d concepts unsortable", domain.ErrCycleDetected, len(concepts)-len(sorted), len(concepts))
	}
	return sorted, nil
}

// Validate checks graph integrity: resolvable prerequisite references and
// acyclicity, plus structural stats and warnings for dead-end concepts.
// Integrity failures land in Errors; the path generator must never be
// handed a graph that fails validation.
func Validate(concepts []domain.ConceptNode) domain.GraphValidation {
	result := domain.GraphValidation{IsValid: true}
	index := indexByID(concepts)

	edgeCount := 0
	for _, c := range concepts {
		for _, prereq := range c.Prerequisites {
			edgeCount++
			if _, ok := index[prereq]; !ok {
				result.Errors = append(result.Errors, fmt.Sprintf("concept %q references unknown prerequisite %q", c.ID, prereq))
			}
		}
	}

	if len(result.Errors) == 0 {
		if _, err := TopologicalSort(concepts); err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
	}
	result.IsValid = len(result.Errors) == 0

	dependents := dependentsAdjacency(concepts)
	roots, leaves := 0, 0
	var noDependents []string
	for _, c := range concepts {
		if len(c.Prerequisites) == 0 {
			leaves++
		}
		if len(dependents[c.ID]) == 0 {
			roots++
			noDependents = append(noDependents, c.ID)
		}
	}
	// Terminal concepts are expected in small numbers; flag them so content
	// admins can spot orphaned material.
	sort.Strings(noDependents)
	for _, id := range noDependents {
		result.Warnings = append(result.Warnings, fmt.Sprintf("concept %q has no dependents", id))
	}

	result.Stats = domain.GraphStats{
		ConceptCount: len(concepts),
		EdgeCount:    edgeCount,
		RootCount:    roots,
		LeafCount:    leaves,
		MaxDepth:     maxChainDepth(concepts, result.IsValid),
	}
	return result
}

// maxChainDepth computes the longest prerequisite chain. Only meaningful on
// a valid graph; returns 0 otherwise.
func maxChainDepth(concepts []domain.ConceptNode, valid bool) int {
	if !valid {
		return 0
	}
	index := indexByID(concepts)
	memo := make(map[string]int, len(concepts))

	var depth func(id string) int
	depth = func(id string) int {
		if d, ok := memo[id]; ok {
			return d
		}
		node := index[id]
		best := 0
		for _, prereq := range node.Prerequisites {
			if d := depth(prereq); d > best {
				best = d
			}
		}
		memo[id] = best + 1
		return best + 1
	}

	max := 0
	for _, c := range concepts {
		if d := depth(c.ID); d > max {
			max = d
		}
	}
	return max
}

func indexByID(concepts []domain.ConceptNode) map[string]domain.ConceptNode {
	index := make(map[string]domain.ConceptNode, len(concepts))
	for _, c := range concepts {
		index[c.ID] = c
	}
	return index
}

func dependentsAdjacency(concepts []domain.ConceptNode) map[string][]string {
	dependents := make(map[string][]string, len(concepts))
	for _, c := range concepts {
		for _, prereq := range c.Prerequisites {
			dependents[prereq] = append(dependents[prereq], c.ID)
		}
	}
	return dependents
}
