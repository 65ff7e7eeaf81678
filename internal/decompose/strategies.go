package decompose

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/swarmq/swarmq/pkg/models"
)

// newTask builds one micro-task with a fresh ID inside the given run.
func newTask(runID, taskType, description string, params map[string]any, hint models.PriorityLevel, estimated time.Duration) *models.Task {
	return &models.Task{
		ID:                uuid.New().String(),
		RunID:             runID,
		Type:              taskType,
		Description:       description,
		Params:            params,
		Hint:              hint,
		Status:            models.TaskStatusPending,
		EstimatedDuration: estimated,
		CreatedAt:         time.Now(),
	}
}

// dataAnalysisStrategy emits one collection task per declared data
// source, up to 100 processing chunks, four analysis tasks, and one
// terminal synthesis task.
func dataAnalysisStrategy(goal string, ctx map[string]any, maxTasks int, runID string) []taskGroup {
	sources := stringSlice(ctx["data_sources"])
	if len(sources) == 0 {
		sources = []string{"default"}
	}

	var collection []*models.Task
	for _, source := range sources {
		collection = append(collection, newTask(runID, "data_collection",
			fmt.Sprintf("Collect data from %s", source),
			map[string]any{"source": source},
			models.LevelHigh, 10*time.Second))
	}

	numChunks := min(100, maxTasks-len(collection)-10)
	var processing []*models.Task
	for i := 0; i < numChunks; i++ {
		processing = append(processing, newTask(runID, "data_processing",
			fmt.Sprintf("Process data chunk %d/%d", i+1, numChunks),
			map[string]any{"chunk_id": i, "total_chunks": numChunks},
			models.LevelNormal, 5*time.Second))
	}

	var analysis []*models.Task
	for _, kind := range []string{"statistical", "correlation", "trend", "anomaly"} {
		analysis = append(analysis, newTask(runID, "data_analysis",
			fmt.Sprintf("Perform %s analysis", kind),
			map[string]any{"analysis_type": kind},
			models.LevelNormal, 15*time.Second))
	}

	synthesis := newTask(runID, "synthesis", "Synthesize analysis results",
		map[string]any{"goal": goal}, models.LevelHigh, 10*time.Second)
	synthesis.Terminal = true

	return []taskGroup{
		{tasks: collection},
		{tasks: processing},
		{fixed: true, tasks: analysis},
		{fixed: true, terminal: true, tasks: []*models.Task{synthesis}},
	}
}

// contentGenerationStrategy emits research and outline tasks, parallel
// content pieces, and a terminal review task.
func contentGenerationStrategy(goal string, ctx map[string]any, maxTasks int, runID string) []taskGroup {
	contentType := stringValue(ctx["content_type"], "text")
	quantity := intValue(ctx["quantity"], 10)

	research := newTask(runID, "research", "Research topic and gather references",
		map[string]any{"goal": goal}, models.LevelHigh, 20*time.Second)
	outline := newTask(runID, "outline", "Create content outline",
		map[string]any{"content_type": contentType}, models.LevelNormal, 10*time.Second)

	numPieces := min(quantity, maxTasks-2-5)
	var pieces []*models.Task
	for i := 0; i < numPieces; i++ {
		pieces = append(pieces, newTask(runID, "content_creation",
			fmt.Sprintf("Generate content piece %d/%d", i+1, numPieces),
			map[string]any{"piece_id": i, "content_type": contentType},
			models.LevelNormal, 15*time.Second))
	}

	review := newTask(runID, "review", "Review and polish content",
		map[string]any{"content_type": contentType}, models.LevelNormal, 20*time.Second)
	review.Terminal = true

	return []taskGroup{
		{fixed: true, tasks: []*models.Task{research}},
		{fixed: true, tasks: []*models.Task{outline}},
		{tasks: pieces},
		{fixed: true, terminal: true, tasks: []*models.Task{review}},
	}
}

// techScoutingStrategy emits parallel scanners per source and a batch of
// evaluation tasks over the discoveries.
func techScoutingStrategy(goal string, ctx map[string]any, maxTasks int, runID string) []taskGroup {
	sources := []string{"github", "arxiv", "hackernews", "producthunt"}
	query := stringValue(ctx["query"], "AI")

	scannersPerSource := max(1, min(50, maxTasks/len(sources)/2))
	var scans []*models.Task
	for _, source := range sources {
		for i := 0; i < scannersPerSource; i++ {
			scans = append(scans, newTask(runID, "tech_scan",
				fmt.Sprintf("Scan %s (worker %d)", source, i+1),
				map[string]any{"source": source, "worker_id": i, "query": query},
				models.LevelNormal, 10*time.Second))
		}
	}

	numEvaluators := max(1, min(200, maxTasks-len(scans)-10))
	var evals []*models.Task
	for i := 0; i < numEvaluators; i++ {
		evals = append(evals, newTask(runID, "tech_evaluation",
			fmt.Sprintf("Evaluate discovered tech %d", i+1),
			map[string]any{"evaluator_id": i},
			models.LevelLow, 5*time.Second))
	}

	return []taskGroup{
		{tasks: scans},
		{tasks: evals},
	}
}

// learningStrategy emits parallel ingestion and knowledge compression.
func learningStrategy(goal string, ctx map[string]any, maxTasks int, runID string) []taskGroup {
	numIngestors := max(1, min(1000, maxTasks/2))
	var ingest []*models.Task
	for i := 0; i < numIngestors; i++ {
		ingest = append(ingest, newTask(runID, "data_ingest",
			fmt.Sprintf("Ingest data chunk %d", i+1),
			map[string]any{"chunk_id": i},
			models.LevelNormal, 5*time.Second))
	}

	numCompressors := max(1, min(500, maxTasks-numIngestors-10))
	var compress []*models.Task
	for i := 0; i < numCompressors; i++ {
		compress = append(compress, newTask(runID, "knowledge_compression",
			fmt.Sprintf("Compress knowledge %d", i+1),
			map[string]any{"compressor_id": i},
			models.LevelNormal, 3*time.Second))
	}

	return []taskGroup{
		{tasks: ingest},
		{tasks: compress},
	}
}

// simulationStrategy emits parallel scenario runs and a terminal
// analysis task over the results.
func simulationStrategy(goal string, ctx map[string]any, maxTasks int, runID string) []taskGroup {
	numScenarios := max(1, min(intValue(ctx["num_scenarios"], 1000), maxTasks-10))
	var scenarios []*models.Task
	for i := 0; i < numScenarios; i++ {
		scenarios = append(scenarios, newTask(runID, "simulation",
			fmt.Sprintf("Run simulation scenario %d", i+1),
			map[string]any{"scenario_id": i},
			models.LevelNormal, 10*time.Second))
	}

	analysis := newTask(runID, "simulation_analysis", "Analyze simulation results",
		map[string]any{"total_scenarios": numScenarios},
		models.LevelHigh, 30*time.Second)
	analysis.Terminal = true

	return []taskGroup{
		{tasks: scenarios},
		{fixed: true, terminal: true, tasks: []*models.Task{analysis}},
	}
}

// mediaCreationStrategy emits a style research task and parallel media
// generation. Video generation declares a GPU requirement.
func mediaCreationStrategy(goal string, ctx map[string]any, maxTasks int, runID string) []taskGroup {
	mediaType := stringValue(ctx["media_type"], "image")
	quantity := intValue(ctx["quantity"], 10)

	style := newTask(runID, "style_research", "Research visual style",
		map[string]any{"media_type": mediaType}, models.LevelHigh, 10*time.Second)

	estimated := 5 * time.Second
	if mediaType == "video" {
		estimated = 20 * time.Second
	}

	numPieces := min(quantity, maxTasks-5)
	var pieces []*models.Task
	for i := 0; i < numPieces; i++ {
		task := newTask(runID, "media_generation",
			fmt.Sprintf("Generate %s %d/%d", mediaType, i+1, numPieces),
			map[string]any{"media_type": mediaType, "piece_id": i},
			models.LevelNormal, estimated)
		if mediaType == "video" {
			task.Requires = models.Resources{CPU: 2, MemoryMB: 2048, GPU: 1}
		}
		pieces = append(pieces, task)
	}

	return []taskGroup{
		{fixed: true, tasks: []*models.Task{style}},
		{tasks: pieces},
	}
}

// genericStrategy handles unmatched goals with a flat batch of subtasks.
func genericStrategy(goal string, ctx map[string]any, maxTasks int, runID string) []taskGroup {
	numTasks := min(100, maxTasks)
	var tasks []*models.Task
	for i := 0; i < numTasks; i++ {
		tasks = append(tasks, newTask(runID, "generic_task",
			fmt.Sprintf("Execute sub-task %d/%d", i+1, numTasks),
			map[string]any{"index": i, "goal": goal},
			models.LevelNormal, 5*time.Second))
	}
	return []taskGroup{{tasks: tasks}}
}

func stringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		var out []string
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

func stringValue(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

func intValue(v any, fallback int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return fallback
	}
}
