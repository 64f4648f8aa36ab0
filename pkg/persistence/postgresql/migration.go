package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				trigger_type VARCHAR(64) NOT NULL,
				trigger_config JSONB,
				status VARCHAR(32) NOT NULL CHECK (status IN ('active', 'inactive')),
				owner VARCHAR(255) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_trigger_status ON workflows(trigger_type, status, created_at, id);
			CREATE INDEX idx_workflows_owner ON workflows(owner);

			CREATE TABLE workflow_nodes (
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				ordinal INT NOT NULL,
				kind VARCHAR(32) NOT NULL,
				name VARCHAR(255) NOT NULL DEFAULT '',
				config JSONB NOT NULL DEFAULT '{}',
				position_x INT NOT NULL DEFAULT 0,
				position_y INT NOT NULL DEFAULT 0,
				PRIMARY KEY (workflow_id, id)
			);

			CREATE TABLE workflow_connections (
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				ordinal INT NOT NULL,
				source_node_id VARCHAR(255) NOT NULL,
				target_node_id VARCHAR(255) NOT NULL,
				type VARCHAR(16) NOT NULL DEFAULT '',
				PRIMARY KEY (workflow_id, id)
			);

			CREATE INDEX idx_workflow_connections_source ON workflow_connections(workflow_id, source_node_id);
		`,
		2: `
			-- Executions keep their workflow id without a foreign key so the
			-- history survives workflow deletion.
			CREATE TABLE executions (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				user_id VARCHAR(255) NOT NULL DEFAULT '',
				status VARCHAR(32) NOT NULL CHECK (status IN ('running', 'completed', 'failed', 'paused')),
				trigger_data JSONB,
				variables JSONB,
				checkpoint JSONB,
				resume_at TIMESTAMP WITH TIME ZONE,
				error TEXT NOT NULL DEFAULT '',
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_executions_workflow_id ON executions(workflow_id, started_at DESC);
			CREATE INDEX idx_executions_due ON executions(resume_at) WHERE status = 'paused';
		`,
		3: `
			CREATE TABLE channel_configs (
				user_id VARCHAR(255) PRIMARY KEY,
				config JSONB NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE TABLE entities (
				entity VARCHAR(64) NOT NULL,
				id VARCHAR(255) NOT NULL,
				fields JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (entity, id)
			);
		`,
		4: `
			ALTER TABLE executions ADD COLUMN version BIGINT NOT NULL DEFAULT 1;
		`,
	}
}
