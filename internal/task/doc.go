// Package task manages background job queuing and processing.
// Uploads and regeneration requests become WorksheetGenerationTasks that
// run on a bounded worker pool so HTTP handlers never wait on the LLM.
package task
