// regkey administra claves de registro y operadores de plataforma directamente contra
// PostgreSQL, sin pasar por la API HTTP.
//
// Uso: go run ./cmd/regkey generate --tenant T1 --account-type COMPOSTA --uses 5
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rukioi/legal-saas-api/internal/application/dto"
	"github.com/rukioi/legal-saas-api/internal/application/regkey"
	"github.com/rukioi/legal-saas-api/internal/domain/entity"
	"github.com/rukioi/legal-saas-api/internal/domain/repository"
	"github.com/rukioi/legal-saas-api/internal/infrastructure/memory"
	"github.com/rukioi/legal-saas-api/internal/infrastructure/postgres"
	"github.com/rukioi/legal-saas-api/pkg/config"
	"github.com/rukioi/legal-saas-api/pkg/logger"
	"github.com/rukioi/legal-saas-api/pkg/password"
)

type env struct {
	keys   *regkey.KeyStore
	admins repository.AdminRepository
	hasher *password.Hasher
	out    string
	close  func()
}

func (e *env) print(v any) {
	if e.out == "json" {
		b, _ := json.MarshalIndent(v, "", "  ")
		fmt.Println(string(b))
		return
	}
	switch x := v.(type) {
	case []dto.RegistrationKeyResponse:
		w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPREFIJO\tTENANT\tTIER\tUSOS\tREVOCADA")
		for _, k := range x {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%t\n", k.ID, k.KeyPrefix, k.TenantID, k.AccountType, k.UsesLeft, k.UsesAllowed, k.Revoked)
		}
		_ = w.Flush()
	case *dto.GeneratedKeyResponse:
		fmt.Printf("id:    %s\nclave: %s\n(la clave no se vuelve a mostrar)\n", x.ID, x.Key)
	case *dto.KeyUsageResponse:
		fmt.Printf("id: %s tenant: %s usos: %d/%d revocada: %t expirada: %t\n", x.ID, x.TenantID, x.UsesCount, x.UsesAllowed, x.Revoked, x.Expired)
		for _, u := range x.Logs {
			fmt.Printf("  %s  %s  %s\n", u.UsedAt.Format(time.RFC3339), u.UsedBy, u.Email)
		}
	default:
		fmt.Println(v)
	}
}

func main() {
	var (
		out    = "text"
		dryRun bool
		e      *env
	)

	root := &cobra.Command{
		Use:           "regkey",
		Short:         "Administración de claves de registro y admins de plataforma",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			e, err = open(cmd.Context(), dryRun)
			if err != nil {
				return err
			}
			e.out = out
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e != nil && e.close != nil {
				e.close()
			}
		},
	}
	root.PersistentFlags().StringVar(&out, "out", out, "Formato de salida: json|text")
	root.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Usar un almacén en memoria (no toca la base de datos)")

	var (
		genTenant, genTier string
		genUses            int
		genSingle          bool
		genExpires         time.Duration
	)
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generar una clave de registro (se muestra una sola vez)",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := dto.GenerateKeyRequest{
				TenantID:    genTenant,
				AccountType: strings.ToUpper(genTier),
				SingleUse:   genSingle,
			}
			if cmd.Flags().Changed("uses") {
				in.UsesAllowed = &genUses
			}
			if genExpires > 0 {
				at := time.Now().Add(genExpires)
				in.ExpiresAt = &at
			}
			res, err := e.keys.GenerateKey(cmd.Context(), in)
			if err != nil {
				return err
			}
			e.print(res)
			return nil
		},
	}
	generateCmd.Flags().StringVar(&genTenant, "tenant", "", "ID del tenant (obligatorio)")
	generateCmd.Flags().StringVar(&genTier, "account-type", string(entity.AccountSimples), "SIMPLES|COMPOSTA|GERENCIAL")
	generateCmd.Flags().IntVar(&genUses, "uses", 1, "Usos permitidos")
	generateCmd.Flags().BoolVar(&genSingle, "single-use", false, "Clave de un solo uso")
	generateCmd.Flags().DurationVar(&genExpires, "expires-in", 0, "Vigencia (ej. 72h); 0 = sin expiración")

	var listTenant string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Listar claves",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := e.keys.ListKeys(cmd.Context(), listTenant)
			if err != nil {
				return err
			}
			e.print(res)
			return nil
		},
	}
	listCmd.Flags().StringVar(&listTenant, "tenant", "", "Filtrar por tenant")

	revokeCmd := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revocar una clave",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.keys.RevokeKey(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}

	usageCmd := &cobra.Command{
		Use:   "usage <id>",
		Short: "Ver el uso de una clave",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := e.keys.GetKeyUsage(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			e.print(res)
			return nil
		},
	}

	var adminEmail, adminName, adminPassword, adminRole string
	createAdminCmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Crear un operador de plataforma",
		RunE: func(cmd *cobra.Command, args []string) error {
			if adminEmail == "" || adminPassword == "" {
				return fmt.Errorf("--email y --password son requeridos")
			}
			existing, err := e.admins.GetByEmail(cmd.Context(), adminEmail)
			if err != nil {
				return err
			}
			if existing != nil {
				return fmt.Errorf("ya existe un admin con email %s", adminEmail)
			}
			hash, err := e.hasher.Hash(adminPassword)
			if err != nil {
				return err
			}
			a := &entity.Admin{
				ID:           uuid.NewString(),
				Email:        strings.ToLower(strings.TrimSpace(adminEmail)),
				Name:         adminName,
				PasswordHash: hash,
				Role:         adminRole,
				IsActive:     true,
			}
			if err := e.admins.Create(cmd.Context(), a); err != nil {
				return err
			}
			fmt.Println(a.ID)
			return nil
		},
	}
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Email del admin")
	createAdminCmd.Flags().StringVar(&adminName, "name", "", "Nombre")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", os.Getenv("REGKEY_ADMIN_PASSWORD"), "Contraseña (env REGKEY_ADMIN_PASSWORD)")
	createAdminCmd.Flags().StringVar(&adminRole, "role", entity.AdminRoleOperator, "admin|superadmin")

	root.AddCommand(generateCmd, listCmd, revokeCmd, usageCmd, createAdminCmd)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// open construye el KeyStore sobre PostgreSQL o, con dryRun, sobre el store en memoria.
func open(ctx context.Context, dryRun bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	hasher := password.NewHasher(cfg.Security.BcryptCost)
	log := logger.New(logger.Config{Env: "development", Level: "warn", Output: os.Stderr})

	if dryRun {
		store := memory.NewStore()
		return &env{
			keys:   regkey.NewKeyStore(store.Keys(), hasher, regkey.Options{Logger: log}),
			admins: store.Admins(),
			hasher: hasher,
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	return &env{
		keys: regkey.NewKeyStore(postgres.NewRegistrationKeyRepository(pool), hasher, regkey.Options{
			Logger:       log,
			StoreTimeout: cfg.Security.StoreTimeout,
		}),
		admins: postgres.NewAdminRepository(pool),
		hasher: hasher,
		close:  pool.Close,
	}, nil
}
