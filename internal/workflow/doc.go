// Package workflow implements the orchestration core of the terminal
// workbench: a declarative, multi-step automation defined in YAML or
// JSON, planned into a dependency-respecting order, and executed step by
// step against the command catalogue.
//
// # Workflow Definition Structure
//
//	workflow_id: deploy-app
//	name: Deploy application
//	inputs:
//	  environment:
//	    type: string
//	    required: true
//	    validation:
//	      allowed_values: [staging, production]
//	steps:
//	  - id: validate
//	    run: "apps validate"
//	    with:
//	      environment: "${{ inputs.environment }}"
//	  - id: deploy
//	    depends_on: [validate]
//	    run: "apps deploy"
//	    with:
//	      environment: "${{ inputs.environment }}"
//	      validated: "${{ steps.validate.ok }}"
//
// # Execution
//
// StepPlanner orders steps by depends_on, breaking ties by manifest
// order. StepExecutor prepares each step's templates against the live
// RunContext immediately before dispatch, evaluates its "if" condition,
// and loops according to its "repeat" policy when present. WorkflowRunner
// owns the RunContext for one execution and streams StepStarted /
// StepFinished / WorkflowFinished progress events, including a coalesced
// latest-wins channel for a status line that must never block on a slow
// consumer.
//
// # Cancellation
//
// Cancellation is cooperative: checked between steps and between repeat
// iterations. An in-flight dispatcher call is always allowed to finish,
// since it carries its own timeout. Steps that never got to run once a
// cancellation lands are recorded as Skipped.
package workflow
