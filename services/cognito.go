package services

import (
	"context"
	"errors"
	"fmt"

	"codegalaxy/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

// IdentityProvider is an external account system that owns passwords and
// verification codes. Local user records are still kept for everything
// else.
type IdentityProvider interface {
	SignUp(ctx context.Context, name, email, password string) (string, error)
	ConfirmSignUp(ctx context.Context, email, code string) error
	ResendCode(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (string, error)
	ForgotPassword(ctx context.Context, email string) error
	ConfirmForgotPassword(ctx context.Context, email, code, newPassword string) error
}

// CognitoIdentity delegates accounts to an AWS Cognito user pool.
type CognitoIdentity struct {
	client          *cognitoidentityprovider.Client
	appClientId     string
	appClientSecret string
}

func NewCognitoIdentity(ctx context.Context, region, appClientId, appClientSecret string) (*CognitoIdentity, error) {
	if region == "" {
		region = "ap-south-1"
	}
	cfg, err := awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &CognitoIdentity{
		client:          cognitoidentityprovider.NewFromConfig(cfg),
		appClientId:     appClientId,
		appClientSecret: appClientSecret,
	}, nil
}

func (c *CognitoIdentity) secretHash(email string) *string {
	return aws.String(utils.GenerateSecretHash(email, c.appClientId, c.appClientSecret))
}

// SignUp registers the user and returns the pool's subject id.
func (c *CognitoIdentity) SignUp(ctx context.Context, name, email, password string) (string, error) {
	out, err := c.client.SignUp(ctx, &cognitoidentityprovider.SignUpInput{
		ClientId:   aws.String(c.appClientId),
		Password:   aws.String(password),
		SecretHash: c.secretHash(email),
		Username:   aws.String(email),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
			{Name: aws.String("nickname"), Value: aws.String(name)},
		},
	})
	if err != nil {
		var exists *types.UsernameExistsException
		if errors.As(err, &exists) {
			return "", ErrEmailTaken
		}
		return "", fmt.Errorf("cognito sign up failed: %w", err)
	}
	return aws.ToString(out.UserSub), nil
}

func (c *CognitoIdentity) ConfirmSignUp(ctx context.Context, email, code string) error {
	_, err := c.client.ConfirmSignUp(ctx, &cognitoidentityprovider.ConfirmSignUpInput{
		ClientId:         aws.String(c.appClientId),
		ConfirmationCode: aws.String(code),
		Username:         aws.String(email),
		SecretHash:       c.secretHash(email),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	return nil
}

func (c *CognitoIdentity) ResendCode(ctx context.Context, email string) error {
	_, err := c.client.ResendConfirmationCode(ctx, &cognitoidentityprovider.ResendConfirmationCodeInput{
		ClientId:   aws.String(c.appClientId),
		Username:   aws.String(email),
		SecretHash: c.secretHash(email),
	})
	if err != nil {
		return fmt.Errorf("cognito resend failed: %w", err)
	}
	return nil
}

// Login checks the password and returns the user's subject id.
func (c *CognitoIdentity) Login(ctx context.Context, email, password string) (string, error) {
	authOutput, err := c.client.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(c.appClientId),
		AuthParameters: map[string]string{
			"USERNAME":    email,
			"PASSWORD":    password,
			"SECRET_HASH": aws.ToString(c.secretHash(email)),
		},
	})
	if err != nil {
		var notConfirmed *types.UserNotConfirmedException
		if errors.As(err, &notConfirmed) {
			return "", ErrEmailNotVerified
		}
		return "", ErrInvalidCredentials
	}
	if authOutput.AuthenticationResult == nil {
		return "", ErrInvalidCredentials
	}

	user, err := c.client.GetUser(ctx, &cognitoidentityprovider.GetUserInput{
		AccessToken: authOutput.AuthenticationResult.AccessToken,
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch cognito user: %w", err)
	}
	for _, attr := range user.UserAttributes {
		if aws.ToString(attr.Name) == "sub" {
			return aws.ToString(attr.Value), nil
		}
	}
	return aws.ToString(user.Username), nil
}

func (c *CognitoIdentity) ForgotPassword(ctx context.Context, email string) error {
	_, err := c.client.ForgotPassword(ctx, &cognitoidentityprovider.ForgotPasswordInput{
		ClientId:   aws.String(c.appClientId),
		Username:   aws.String(email),
		SecretHash: c.secretHash(email),
	})
	if err != nil {
		return fmt.Errorf("cognito forgot password failed: %w", err)
	}
	return nil
}

func (c *CognitoIdentity) ConfirmForgotPassword(ctx context.Context, email, code, newPassword string) error {
	_, err := c.client.ConfirmForgotPassword(ctx, &cognitoidentityprovider.ConfirmForgotPasswordInput{
		ClientId:         aws.String(c.appClientId),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
		Password:         aws.String(newPassword),
		SecretHash:       c.secretHash(email),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	return nil
}
