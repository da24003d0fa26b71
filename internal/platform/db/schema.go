package db

import (
	"context"
	"database/sql"
)

// Migrations is the schema history of the AIH database, oldest first.
var Migrations = []Migration{
	{Version: 1, Name: "core_tables", SQL: schemaCoreTables},
	{Version: 2, Name: "indexes", SQL: schemaIndexes},
	{Version: 3, Name: "seed_glosa_types", SQL: schemaSeedGlosaTypes},
	{
		Version: 4,
		Name:    "usuarios_matricula",
		SQL: `ALTER TABLE usuarios ADD COLUMN matricula TEXT;
CREATE UNIQUE INDEX IF NOT EXISTS idx_usuarios_matricula ON usuarios(matricula);`,
		Skip: columnPresent("usuarios", "matricula"),
	},
	{
		Version: 5,
		Name:    "administradores_ultima_alteracao",
		SQL:     `ALTER TABLE administradores ADD COLUMN ultima_alteracao DATETIME;`,
		Skip:    columnPresent("administradores", "ultima_alteracao"),
	},
}

func columnPresent(table, column string) func(ctx context.Context, tx *sql.Tx) (bool, error) {
	return func(ctx context.Context, tx *sql.Tx) (bool, error) {
		return ColumnExists(ctx, tx, table, column)
	}
}

// Access and deletion logs keep the actor id without a foreign key so that
// the audit trail outlives the account.
const schemaCoreTables = `
CREATE TABLE IF NOT EXISTS usuarios (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    nome TEXT UNIQUE NOT NULL,
    matricula TEXT UNIQUE,
    senha_hash TEXT NOT NULL,
    criado_em DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS administradores (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    usuario TEXT UNIQUE NOT NULL,
    senha_hash TEXT NOT NULL,
    criado_em DATETIME DEFAULT CURRENT_TIMESTAMP,
    ultima_alteracao DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS aihs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    numero_aih TEXT UNIQUE NOT NULL,
    valor_inicial REAL NOT NULL,
    valor_atual REAL NOT NULL,
    status INTEGER NOT NULL DEFAULT 3 CHECK (status BETWEEN 1 AND 4),
    competencia TEXT NOT NULL,
    criado_em DATETIME DEFAULT CURRENT_TIMESTAMP,
    usuario_cadastro_id INTEGER,
    FOREIGN KEY (usuario_cadastro_id) REFERENCES usuarios(id)
);

CREATE TABLE IF NOT EXISTS atendimentos (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    aih_id INTEGER NOT NULL,
    numero_atendimento TEXT NOT NULL,
    FOREIGN KEY (aih_id) REFERENCES aihs(id)
);

CREATE TABLE IF NOT EXISTS movimentacoes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    aih_id INTEGER NOT NULL,
    tipo TEXT NOT NULL CHECK (tipo IN ('entrada_sus', 'saida_hospital')),
    data_movimentacao DATETIME DEFAULT CURRENT_TIMESTAMP,
    usuario_id INTEGER NOT NULL,
    valor_conta REAL,
    competencia TEXT,
    prof_medicina TEXT,
    prof_enfermagem TEXT,
    prof_fisioterapia TEXT,
    prof_bucomaxilo TEXT,
    status_aih INTEGER NOT NULL CHECK (status_aih BETWEEN 1 AND 4),
    observacoes TEXT,
    FOREIGN KEY (aih_id) REFERENCES aihs(id),
    FOREIGN KEY (usuario_id) REFERENCES usuarios(id)
);

CREATE TABLE IF NOT EXISTS glosas (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    aih_id INTEGER NOT NULL,
    linha TEXT NOT NULL,
    tipo TEXT NOT NULL,
    profissional TEXT NOT NULL,
    quantidade INTEGER DEFAULT 1 CHECK (quantidade >= 1),
    ativa INTEGER DEFAULT 1,
    criado_em DATETIME DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (aih_id) REFERENCES aihs(id)
);

CREATE TABLE IF NOT EXISTS profissionais (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    nome TEXT NOT NULL,
    especialidade TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tipos_glosa (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    descricao TEXT UNIQUE NOT NULL
);

CREATE TABLE IF NOT EXISTS logs_acesso (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    usuario_id INTEGER NOT NULL,
    acao TEXT NOT NULL,
    data_hora DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS logs_exclusao (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    tipo_exclusao TEXT NOT NULL CHECK (tipo_exclusao IN ('movimentacao', 'aih_completa')),
    usuario_id INTEGER NOT NULL,
    dados_excluidos TEXT NOT NULL,
    justificativa TEXT NOT NULL,
    ip_origem TEXT,
    user_agent TEXT,
    data_exclusao DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

const schemaIndexes = `
CREATE INDEX IF NOT EXISTS idx_aih_status_competencia ON aihs(status, competencia);
CREATE INDEX IF NOT EXISTS idx_aih_competencia_criado ON aihs(competencia, criado_em DESC);
CREATE INDEX IF NOT EXISTS idx_aih_usuario_criado ON aihs(usuario_cadastro_id, criado_em DESC);
CREATE INDEX IF NOT EXISTS idx_aih_criado_status ON aihs(criado_em DESC, status, competencia);
CREATE INDEX IF NOT EXISTS idx_dashboard_competencia_status ON aihs(competencia, status, valor_inicial, valor_atual);

CREATE INDEX IF NOT EXISTS idx_mov_aih_data ON movimentacoes(aih_id, data_movimentacao DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_mov_tipo_competencia_aih ON movimentacoes(tipo, competencia, aih_id);
CREATE INDEX IF NOT EXISTS idx_mov_competencia_data ON movimentacoes(competencia, data_movimentacao DESC);
CREATE INDEX IF NOT EXISTS idx_mov_usuario_data ON movimentacoes(usuario_id, data_movimentacao DESC);
CREATE INDEX IF NOT EXISTS idx_mov_prof_medicina ON movimentacoes(prof_medicina) WHERE prof_medicina IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_mov_prof_enfermagem ON movimentacoes(prof_enfermagem) WHERE prof_enfermagem IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_mov_prof_fisio ON movimentacoes(prof_fisioterapia) WHERE prof_fisioterapia IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_mov_prof_buco ON movimentacoes(prof_bucomaxilo) WHERE prof_bucomaxilo IS NOT NULL;

CREATE INDEX IF NOT EXISTS idx_glosas_aih_ativa ON glosas(aih_id, ativa);
CREATE INDEX IF NOT EXISTS idx_glosas_prof_ativa ON glosas(profissional, ativa, criado_em DESC);
CREATE INDEX IF NOT EXISTS idx_glosas_tipo_linha_ativa ON glosas(tipo, linha, ativa, criado_em DESC);

CREATE INDEX IF NOT EXISTS idx_atend_aih_numero ON atendimentos(aih_id, numero_atendimento);
CREATE INDEX IF NOT EXISTS idx_atendimentos_numero ON atendimentos(numero_atendimento);

CREATE INDEX IF NOT EXISTS idx_logs_usuario_data ON logs_acesso(usuario_id, data_hora DESC);
CREATE INDEX IF NOT EXISTS idx_logs_acao_data ON logs_acesso(acao, data_hora DESC);
CREATE INDEX IF NOT EXISTS idx_logs_exclusao_usuario ON logs_exclusao(usuario_id, data_exclusao DESC);
CREATE INDEX IF NOT EXISTS idx_logs_exclusao_tipo ON logs_exclusao(tipo_exclusao, data_exclusao DESC);
CREATE INDEX IF NOT EXISTS idx_logs_exclusao_data ON logs_exclusao(data_exclusao DESC);
`

const schemaSeedGlosaTypes = `
INSERT OR IGNORE INTO tipos_glosa (descricao) VALUES
    ('Material não autorizado'),
    ('Quantidade excedente'),
    ('Procedimento não autorizado'),
    ('Falta de documentação'),
    ('Divergência de valores');
`
