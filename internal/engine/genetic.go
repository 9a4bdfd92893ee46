package engine

import (
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/piwi3910/polynest/internal/model"
	"github.com/piwi3910/polynest/internal/nfp"
)

// GenerationStats summarizes one generation for progress reporting.
type GenerationStats struct {
	Generation  int
	BestFitness float64 // best fitness inside this generation
	MeanFitness float64
	StdDev      float64
	BestEver    float64 // best fitness seen across all generations so far
}

// ProgressFunc receives per-generation statistics during a solve.
type ProgressFunc func(GenerationStats)

// solver evolves a population of chromosomes toward minimal wasted area.
type solver struct {
	cfg       model.Config
	instances []instance
	eval      *Evaluator
	rng       *rand.Rand
	progress  ProgressFunc
}

// Solve nests the parts onto the sheet using the genetic algorithm and
// returns the best result found within the generation budget. A solve that
// cannot place any part still returns a well-formed empty result with zero
// utilization; only invalid configuration or degenerate input geometry is
// an error.
func Solve(parts []model.Part, sheet model.Sheet, cfg model.Config) (model.NestResult, error) {
	return SolveWithProgress(parts, sheet, cfg, nil)
}

// SolveWithProgress is Solve with a per-generation statistics callback.
func SolveWithProgress(parts []model.Part, sheet model.Sheet, cfg model.Config, progress ProgressFunc) (model.NestResult, error) {
	if err := cfg.Validate(); err != nil {
		return model.NestResult{}, err
	}
	if err := sheet.Outline.Validate(); err != nil {
		return model.NestResult{}, err
	}

	instances, err := prepareInstances(parts, cfg)
	if err != nil {
		return model.NestResult{}, err
	}
	if len(instances) == 0 {
		return model.NestResult{}, nil
	}

	// The fit cache is owned by this run: entries stay valid because the
	// geometry is fixed for the run's duration, and the cache dies with it.
	cache := nfp.NewCache()
	s := &solver{
		cfg:       cfg,
		instances: instances,
		eval:      NewEvaluator(sheet, instances, cache),
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		progress:  progress,
	}
	best := s.run()
	return s.eval.Evaluate(best), nil
}

// run executes the generation loop and returns the best chromosome ever
// seen. Generations are strictly sequential; fitness evaluation inside a
// generation is parallel.
func (s *solver) run() chromosome {
	population := s.initPopulation()
	s.evaluateAll(population)

	best := cloneChromosome(population[fittest(population)])
	stale := 0

	for gen := 0; gen < s.cfg.MaxGenerations; gen++ {
		sort.SliceStable(population, func(i, j int) bool {
			return population[i].fitness < population[j].fitness
		})

		// Elitism: the single best chromosome survives unchanged, so the
		// best fitness seen so far can never regress.
		next := make([]chromosome, 0, s.cfg.PopulationSize)
		next = append(next, cloneChromosome(population[0]))

		for len(next) < s.cfg.PopulationSize {
			p1 := s.tournamentSelect(population)
			p2 := s.tournamentSelect(population)
			child := s.crossover(p1, p2)
			s.mutate(&child)
			next = append(next, child)
		}

		population = next
		s.evaluateAll(population)

		genBest := population[fittest(population)]
		improved := genBest.fitness < best.fitness
		if improved {
			best = cloneChromosome(genBest)
			stale = 0
		} else {
			stale++
		}

		if s.progress != nil {
			fitnesses := make([]float64, len(population))
			for i, c := range population {
				fitnesses[i] = c.fitness
			}
			s.progress(GenerationStats{
				Generation:  gen,
				BestFitness: genBest.fitness,
				MeanFitness: stat.Mean(fitnesses, nil),
				StdDev:      stat.StdDev(fitnesses, nil),
				BestEver:    best.fitness,
			})
		}

		if s.cfg.StallLimit > 0 && stale >= s.cfg.StallLimit {
			break
		}
	}
	return best
}

// initPopulation creates random permutations with random rotation steps.
// The first individual is seeded with the largest-area-first greedy order
// to give the search a reasonable starting point.
func (s *solver) initPopulation() []chromosome {
	n := len(s.instances)
	population := make([]chromosome, s.cfg.PopulationSize)
	for i := range population {
		genes := make([]gene, n)
		for j, inst := range s.rng.Perm(n) {
			genes[j] = gene{
				instance: inst,
				step:     s.rng.Intn(len(s.instances[inst].variants)),
			}
		}
		population[i] = chromosome{genes: genes}
	}

	greedy := make([]int, n)
	for i := range greedy {
		greedy[i] = i
	}
	sort.SliceStable(greedy, func(i, j int) bool {
		return s.instances[greedy[i]].part.Area() > s.instances[greedy[j]].part.Area()
	})
	genes := make([]gene, n)
	for j, inst := range greedy {
		genes[j] = gene{instance: inst}
	}
	population[0] = chromosome{genes: genes}
	return population
}

// evaluateAll scores every chromosome. Individuals share no mutable state
// beyond the fit cache, so they are scored on parallel workers with a
// barrier before selection resumes.
func (s *solver) evaluateAll(population []chromosome) {
	workers := s.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(population) {
		workers = len(population)
	}
	if workers <= 1 {
		for i := range population {
			population[i].fitness = s.eval.Evaluate(population[i]).Fitness
		}
		return
	}

	idx := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				population[i].fitness = s.eval.Evaluate(population[i]).Fitness
			}
		}()
	}
	for i := range population {
		idx <- i
	}
	close(idx)
	wg.Wait()
}

// tournamentSelect picks the fittest of TournamentSize random individuals.
func (s *solver) tournamentSelect(population []chromosome) chromosome {
	best := population[s.rng.Intn(len(population))]
	for i := 1; i < s.cfg.TournamentSize; i++ {
		cand := population[s.rng.Intn(len(population))]
		if cand.fitness < best.fitness {
			best = cand
		}
	}
	return best
}

// crossover recombines two parents with order crossover (OX1) over the
// instance permutation: a random segment of parent 1 is kept in place and
// the remaining instances fill in following parent 2's order, which repairs
// duplicates by construction. Rotation steps are then chosen per instance
// from either parent independently.
func (s *solver) crossover(p1, p2 chromosome) chromosome {
	n := len(p1.genes)
	if n <= 2 {
		return cloneChromosome(p1)
	}

	cut1 := s.rng.Intn(n)
	cut2 := s.rng.Intn(n)
	if cut1 > cut2 {
		cut1, cut2 = cut2, cut1
	}

	child := chromosome{genes: make([]gene, n)}
	inSegment := make(map[int]bool, cut2-cut1+1)
	for i := cut1; i <= cut2; i++ {
		child.genes[i] = p1.genes[i]
		inSegment[p1.genes[i].instance] = true
	}
	fill := (cut2 + 1) % n
	for _, g := range p2.genes {
		if !inSegment[g.instance] {
			child.genes[fill] = g
			fill = (fill + 1) % n
		}
	}

	steps2 := make(map[int]int, n)
	for _, g := range p2.genes {
		steps2[g.instance] = g.step
	}
	for i := range child.genes {
		if s.rng.Intn(2) == 1 {
			child.genes[i].step = steps2[child.genes[i].instance]
		}
	}
	return child
}

// mutate applies swap and rotation-resample mutations, each with the
// configured percent probability.
func (s *solver) mutate(c *chromosome) {
	n := len(c.genes)
	if n == 0 {
		return
	}
	rate := s.cfg.MutationRate / 100

	if n >= 2 && s.rng.Float64() < rate {
		i := s.rng.Intn(n)
		j := s.rng.Intn(n)
		c.genes[i], c.genes[j] = c.genes[j], c.genes[i]
	}
	if s.rng.Float64() < rate {
		i := s.rng.Intn(n)
		variants := len(s.instances[c.genes[i].instance].variants)
		c.genes[i].step = s.rng.Intn(variants)
	}
}

func cloneChromosome(c chromosome) chromosome {
	genes := make([]gene, len(c.genes))
	copy(genes, c.genes)
	return chromosome{genes: genes, fitness: c.fitness}
}

func fittest(population []chromosome) int {
	best := 0
	for i, c := range population {
		if c.fitness < population[best].fitness {
			best = i
		}
	}
	return best
}
