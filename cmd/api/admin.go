package main

import (
	"errors"
	"fmt"
	"net/http"

	"carrent/internal/database"
	"carrent/internal/domain/accesscontrol"
	"carrent/internal/domain/users"
	"carrent/internal/reputation"
)

// listRolesHandler godoc
//
//	@Summary	All roles
//	@Tags		admin
//	@Produce	json
//	@Success	200	{array}	accesscontrol.Role
//	@Security	ApiKeyAuth
//	@Router		/admin/roles [get]
func (app *application) listRolesHandler(w http.ResponseWriter, r *http.Request) {
	roles, err := app.store.AccessControl.ListRoles(r.Context())
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, roles); err != nil {
		app.internalServerError(w, r, err)
	}
}

type VerifyUserResponse struct {
	UserID int64            `json:"user_id"`
	Stats  reputation.Stats `json:"stats"`
	Rank   reputation.Rank  `json:"rank"`
}

// verifyUserHandler godoc
//
//	@Summary		Verify a user
//	@Description	Marks the user verified, grants the UserVerified role and recomputes their rank.
//	@Tags			admin
//	@Produce		json
//	@Param			userID	path		int	true	"User ID"
//	@Success		200		{object}	VerifyUserResponse
//	@Failure		404		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/admin/users/{userID}/verify [put]
func (app *application) verifyUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := readIDParam(r, "userID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx := r.Context()

	if err := app.store.VerifyUser(ctx, userID); err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	stats, rank, err := app.reputation.Recompute(ctx, userID)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	app.logger.Infow("user verified", "user", userID, "by", getUserFromContext(r).ID, "rank", rank)

	if err := app.jsonResponse(w, http.StatusOK, VerifyUserResponse{UserID: userID, Stats: stats, Rank: rank}); err != nil {
		app.internalServerError(w, r, err)
	}
}

type AssignRolePayload struct {
	RoleID int64 `json:"role_id" validate:"required,min=1"`
}

// assignRoleHandler godoc
//
//	@Summary		Grant a role
//	@Description	Admin roles can only be granted by a super admin.
//	@Tags			admin
//	@Accept			json
//	@Param			userID	path	int					true	"User ID"
//	@Param			payload	body	AssignRolePayload	true	"Role"
//	@Success		204
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/admin/users/{userID}/roles [post]
func (app *application) assignRoleHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := readIDParam(r, "userID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload AssignRolePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.checkRoleGrant(r, payload.RoleID); err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	if err := app.store.AccessControl.AssignRole(r.Context(), userID, payload.RoleID); err != nil {
		if database.IsForeignKeyViolation(err) {
			err = users.ErrNotFound
		}
		app.domainErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// removeRoleHandler godoc
//
//	@Summary	Revoke a role
//	@Tags		admin
//	@Param		userID	path	int	true	"User ID"
//	@Param		roleID	path	int	true	"Role ID"
//	@Success	204
//	@Failure	404	{object}	ErrorResponse
//	@Security	ApiKeyAuth
//	@Router		/admin/users/{userID}/roles/{roleID} [delete]
func (app *application) removeRoleHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := readIDParam(r, "userID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	roleID, err := readIDParam(r, "roleID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.checkRoleGrant(r, roleID); err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	if err := app.store.AccessControl.RemoveRole(r.Context(), userID, roleID); err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

var errSuperAdminOnly = errors.New("only a super admin can change admin roles")

// checkRoleGrant lets only super admins hand out or take away admin roles.
func (app *application) checkRoleGrant(r *http.Request, roleID int64) error {
	ctx := r.Context()

	roles, err := app.store.AccessControl.ListRoles(ctx)
	if err != nil {
		return err
	}

	var target *accesscontrol.Role
	for i := range roles {
		if roles[i].ID == roleID {
			target = &roles[i]
			break
		}
	}
	if target == nil {
		return accesscontrol.ErrRoleNotFound
	}
	if !accesscontrol.HasAny([]string{target.Name}, accesscontrol.AdminRoles...) {
		return nil
	}

	super, err := app.store.AccessControl.UserHasRole(ctx, getUserFromContext(r).ID, accesscontrol.RoleSuperAdmin)
	if err != nil {
		return err
	}
	if !super {
		return fmt.Errorf("%w: %s", errSuperAdminOnly, target.Name)
	}
	return nil
}
